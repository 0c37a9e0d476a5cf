package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/model"
)

// Fetcher retrieves a page as HTML.
type Fetcher interface {
	// Fetch returns the document at url. On a readiness or content error the
	// partially filled Page may be returned alongside the error.
	Fetch(ctx context.Context, url string) (*model.Page, error)

	// Name returns the renderer name recorded in reports.
	Name() string
}

// New builds the Fetcher selected by cfg.Renderer.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Renderer {
	case config.RendererChrome:
		return NewChromeFetcher(
			WithCustomPaths(cfg.ChromePaths),
			WithChromeUserAgent(cfg.UserAgent),
			WithChromeProxy(cfg.ProxyAddress),
			WithScroll(cfg.ScrollSteps, cfg.ScrollDelay),
			WithChromeMaxBodySize(cfg.MaxBodySize),
			WithChromeWaitClass(cfg.WaitClass),
			WithChromeLogger(logger),
		), nil

	case config.RendererHTTP:
		client, err := NewHTTPClient(ClientOptions{
			ProxyAddress: cfg.ProxyAddress,
			Timeout:      cfg.Timeout,
			Cookie:       cfg.Cookie,
			Headers:      cfg.Headers,
		})
		if err != nil {
			return nil, err
		}
		return NewHTTPFetcher(client,
			WithUserAgent(cfg.UserAgent),
			WithMaxBodySize(cfg.MaxBodySize),
			WithWaitClass(cfg.WaitClass),
		), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownRenderer, cfg.Renderer)
	}
}
