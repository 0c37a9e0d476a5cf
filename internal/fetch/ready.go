package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nao1215/cvsync/internal/model"
	"golang.org/x/net/html"
)

// finishPage fills in the derived fields of page and verifies that it is an
// HTML document containing waitClass. An empty waitClass skips the check.
func finishPage(page *model.Page, declaredType, waitClass string) error {
	page.ContentType = detectContentType(page.Raw, declaredType)
	page.ComputeHash()

	if !page.IsHTML() {
		return fmt.Errorf("%w: %s", ErrNotHTML, page.ContentType)
	}

	if waitClass == "" {
		return nil
	}

	ok, err := containsClass(page.Raw, waitClass)
	if err != nil {
		return fmt.Errorf("failed to parse fetched document: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no element with class %q", ErrContentNotReady, waitClass)
	}
	return nil
}

// detectContentType sniffs the body. The declared type is used only when it
// says HTML and sniffing is inconclusive, which happens for documents that
// start with a long comment or whitespace.
func detectContentType(body []byte, declared string) string {
	detected := mimetype.Detect(bytes.TrimSpace(body)).String()
	if strings.Contains(detected, "text/html") {
		return detected
	}
	if strings.Contains(strings.ToLower(declared), "text/html") && strings.HasPrefix(detected, "text/plain") {
		return declared
	}
	return detected
}

// containsClass reports whether any element in the document has class as
// one of its class tokens.
func containsClass(raw []byte, class string) (bool, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return false, err
	}

	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode {
			for _, c := range strings.Fields(getAttr(n, "class")) {
				if c == class {
					found = true
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return found, nil
}

// getAttr gets an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
