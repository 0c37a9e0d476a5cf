package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/nao1215/cvsync/internal/config"
	"github.com/nao1215/cvsync/internal/model"
)

// Browser viewport. Wheel events are dispatched at its center.
const (
	viewportWidth  = 1280
	viewportHeight = 2048
)

// scrollDistance is how far one wheel event scrolls, in pixels.
const scrollDistance = 500

// ChromeFetcher renders a page in headless Chrome or Chromium over the
// DevTools protocol and returns the serialized DOM.
//
// After navigation it waits until an element with the wait class is
// visible, then scrolls the page with the mouse wheel so that Notion loads
// the blocks below the first screen. The whole run is bounded by the
// context passed to Fetch.
type ChromeFetcher struct {
	// path is an explicit browser executable. Empty means search for one.
	path string

	// customPaths are extra locations tried before the well-known ones.
	customPaths []config.ChromePath

	userAgent    string
	proxyAddress string

	scrollSteps int
	scrollDelay time.Duration

	maxBodySize int64
	waitClass   string
	logger      *slog.Logger
}

// ChromeOption configures a ChromeFetcher.
type ChromeOption func(*ChromeFetcher)

// WithChromePath uses the executable at path instead of searching for one.
func WithChromePath(path string) ChromeOption {
	return func(f *ChromeFetcher) {
		f.path = path
	}
}

// WithCustomPaths adds browser locations to search.
func WithCustomPaths(paths []config.ChromePath) ChromeOption {
	return func(f *ChromeFetcher) {
		f.customPaths = paths
	}
}

// WithChromeUserAgent overrides the browser's User-Agent.
func WithChromeUserAgent(ua string) ChromeOption {
	return func(f *ChromeFetcher) {
		f.userAgent = ua
	}
}

// WithChromeProxy routes browser traffic through a SOCKS5 proxy at "host:port".
func WithChromeProxy(address string) ChromeOption {
	return func(f *ChromeFetcher) {
		f.proxyAddress = address
	}
}

// WithScroll sets the number of wheel scrolls and the pause after each.
func WithScroll(steps int, delay time.Duration) ChromeOption {
	return func(f *ChromeFetcher) {
		f.scrollSteps = steps
		f.scrollDelay = delay
	}
}

// WithChromeMaxBodySize limits the size of the serialized DOM.
func WithChromeMaxBodySize(size int64) ChromeOption {
	return func(f *ChromeFetcher) {
		f.maxBodySize = size
	}
}

// WithChromeWaitClass sets the class that must become visible.
func WithChromeWaitClass(class string) ChromeOption {
	return func(f *ChromeFetcher) {
		f.waitClass = class
	}
}

// WithChromeLogger sets the logger used for browser diagnostics.
func WithChromeLogger(logger *slog.Logger) ChromeOption {
	return func(f *ChromeFetcher) {
		f.logger = logger
	}
}

// NewChromeFetcher creates a ChromeFetcher with default settings.
func NewChromeFetcher(opts ...ChromeOption) *ChromeFetcher {
	f := &ChromeFetcher{
		userAgent:   config.DefaultUserAgent,
		scrollSteps: config.DefaultScrollSteps,
		scrollDelay: config.DefaultScrollDelay,
		maxBodySize: config.DefaultMaxBodySize,
		waitClass:   config.DefaultWaitClass,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Name returns the renderer name.
func (f *ChromeFetcher) Name() string {
	return config.RendererChrome
}

// Fetch renders pageURL and returns the resulting DOM as a Page.
func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (*model.Page, error) {
	chromePath, err := f.resolvePath()
	if err != nil {
		return nil, err
	}

	if f.proxyAddress != "" && !isValidProxyAddress(f.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, f.proxyAddress)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions(chromePath)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(f.debugf),
		chromedp.WithErrorf(f.debugf),
	)
	defer cancelBrowser()

	f.logger.Debug("starting browser", "path", chromePath, "scrollSteps", f.scrollSteps, "scrollDelay", f.scrollDelay)

	var dom string
	start := time.Now()
	if err := chromedp.Run(browserCtx, f.loadTasks(pageURL, &dom)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s did not show .%s in time: %w", ErrContentNotReady, pageURL, f.waitClass, ctxErr)
		}
		return nil, fmt.Errorf("browser failed: %w", err)
	}
	f.logger.Debug("browser finished", "elapsed", time.Since(start), "bytes", len(dom))

	if f.maxBodySize > 0 && int64(len(dom)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}

	page := &model.Page{
		URL: pageURL,
		Raw: []byte(dom),
	}
	if err := finishPage(page, "text/html", f.waitClass); err != nil {
		return page, err
	}
	return page, nil
}

// allocatorOptions returns the flags the browser is started with.
func (f *ChromeFetcher) allocatorOptions(chromePath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	if f.proxyAddress != "" {
		opts = append(opts, chromedp.ProxyServer("socks5://"+f.proxyAddress))
	}
	// Chrome refuses to start its sandbox as root, e.g. in containers.
	if os.Geteuid() == 0 {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// loadTasks navigates to pageURL, waits for the wait class, scrolls and
// stores the document's markup in dom.
func (f *ChromeFetcher) loadTasks(pageURL string, dom *string) chromedp.Tasks {
	tasks := chromedp.Tasks{chromedp.Navigate(pageURL)}
	if f.waitClass != "" {
		tasks = append(tasks, chromedp.WaitVisible("."+f.waitClass, chromedp.ByQuery))
	}
	for range f.scrollSteps {
		tasks = append(tasks,
			input.DispatchMouseEvent(input.MouseWheel, viewportWidth/2, viewportHeight/2).
				WithDeltaX(0).
				WithDeltaY(scrollDistance),
			chromedp.Sleep(f.scrollDelay),
		)
	}
	return append(tasks, chromedp.OuterHTML("html", dom, chromedp.ByQuery))
}

func (f *ChromeFetcher) debugf(format string, args ...any) {
	f.logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
}

// resolvePath returns the browser executable to run.
func (f *ChromeFetcher) resolvePath() (string, error) {
	if f.path != "" {
		resolved, err := exec.LookPath(f.path)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrBrowserNotFound, f.path)
		}
		return resolved, nil
	}

	if found := findChrome(f.customPaths, runtime.GOOS); found != "" {
		return found, nil
	}
	return "", ErrBrowserNotFound
}

// findChrome returns the first usable browser executable for goos.
// Custom paths for goos (or for every OS when their OS is empty) are tried
// first, then the well-known install locations, then the PATH.
func findChrome(customPaths []config.ChromePath, goos string) string {
	var paths []string
	for _, p := range customPaths {
		if p.Path != "" && (p.OS == "" || p.OS == goos) {
			paths = append(paths, p.Path)
		}
	}

	switch goos {
	case "darwin":
		paths = append(paths,
			`/Applications/Google Chrome.app/Contents/MacOS/Google Chrome`,
			`/Applications/Chromium.app/Contents/MacOS/Chromium`,
			`/usr/local/bin/chrome`,
			`/usr/local/bin/chromium`,
		)
	case "windows":
		paths = append(paths,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Chromium\Application\chrome.exe`,
		)
	case "linux":
		paths = append(paths,
			`/usr/bin/google-chrome`,
			`/usr/bin/google-chrome-stable`,
			`/usr/bin/chromium-browser`,
			`/usr/bin/chromium`,
			`/snap/bin/chromium`,
		)
	}
	paths = append(paths, "google-chrome", "chromium", "chromium-browser", "chrome")

	for _, path := range paths {
		if resolved, err := exec.LookPath(path); err == nil {
			return resolved
		}
	}
	return ""
}
