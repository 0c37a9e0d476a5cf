package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Page is the fetched Notion document.
type Page struct {
	// URL is the requested page URL.
	URL string `json:"url"`

	// StatusCode is the HTTP status code. Zero when the page was rendered
	// by a browser rather than fetched directly.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the detected or declared MIME type.
	ContentType string `json:"content_type"`

	// Raw contains the document bytes.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hash of Raw.
	Hash string `json:"hash"`

	// Size is len(Raw) at the time the hash was computed.
	Size int `json:"size"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
// This should be called after setting the Raw field.
func (p *Page) ComputeHash() {
	p.Size = len(p.Raw)
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the page content type indicates HTML.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
