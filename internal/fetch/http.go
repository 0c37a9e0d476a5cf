package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/model"
)

// HTTPFetcher fetches a page with a single GET request.
// It sees only the server-rendered HTML, which for most Notion pages is an
// application shell. It is useful for exported or mirrored pages.
type HTTPFetcher struct {
	// client performs the requests. It carries proxy, cookie and header settings.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// waitClass must be present in the document. Empty disables the check.
	waitClass string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size. Zero means no limit.
func WithMaxBodySize(size int64) HTTPOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithWaitClass sets the class that must appear in the document.
func WithWaitClass(class string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.waitClass = class
	}
}

// NewHTTPFetcher creates an HTTPFetcher that uses client for requests.
func NewHTTPFetcher(client *http.Client, opts ...HTTPOption) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	f := &HTTPFetcher{
		client:      client,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		waitClass:   config.DefaultWaitClass,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name returns the renderer name.
func (f *HTTPFetcher) Name() string {
	return config.RendererHTTP
}

// Fetch downloads pageURL and returns it as a Page.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := readLimited(resp.Body, f.maxBodySize)
	if err != nil {
		return nil, err
	}

	page := &model.Page{
		URL:        pageURL,
		StatusCode: resp.StatusCode,
		Raw:        body,
	}
	if err := finishPage(page, resp.Header.Get("Content-Type"), f.waitClass); err != nil {
		return page, err
	}
	return page, nil
}

// readLimited reads r to the end, failing with ErrBodyTooLarge when more
// than limit bytes are available. A limit of zero or less reads everything.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}
