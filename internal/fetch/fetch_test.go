package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/nao1215/cvsync/internal/config"
)

const readyPage = `<html><head><title>CV</title></head><body>
<div class="notion-page-content"><div class="notion-text-block">연구 성과</div></div>
</body></html>`

const shellPage = `<html><head><title>Notion</title></head><body><div id="notion-app"></div></body></html>`

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("fetches a ready page", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(readyPage))
		}))
		defer server.Close()

		f := NewHTTPFetcher(server.Client())
		page, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
		if !page.IsHTML() {
			t.Errorf("expected HTML content type, got %q", page.ContentType)
		}
		if page.Hash == "" || page.Size != len(readyPage) {
			t.Errorf("expected hash and size to be set, got %q / %d", page.Hash, page.Size)
		}
		if f.Name() != config.RendererHTTP {
			t.Errorf("unexpected name %q", f.Name())
		}
	})

	t.Run("sends user agent and accept headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "cvsync-test" || !strings.Contains(r.Header.Get("Accept"), "text/html") {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(readyPage))
		}))
		defer server.Close()

		f := NewHTTPFetcher(server.Client(), WithUserAgent("cvsync-test"))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("missing wait class is not ready", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(shellPage))
		}))
		defer server.Close()

		page, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrContentNotReady) {
			t.Errorf("expected ErrContentNotReady, got %v", err)
		}
		if page == nil || len(page.Raw) == 0 {
			t.Error("expected the partial page to be returned")
		}
	})

	t.Run("empty wait class disables the check", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(shellPage))
		}))
		defer server.Close()

		f := NewHTTPFetcher(server.Client(), WithWaitClass(""))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("non-HTML body is rejected", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"block":{"id":"1"}}`))
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrNotHTML) {
			t.Errorf("expected ErrNotHTML, got %v", err)
		}
	})

	t.Run("body over the limit is rejected", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(readyPage))
		}))
		defer server.Close()

		f := NewHTTPFetcher(server.Client(), WithMaxBodySize(16))
		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Errorf("expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(readyPage))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewHTTPFetcher(server.Client()).Fetch(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("injects cookie and headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Cookie") != "token_v2=abc" || r.Header.Get("X-Test") != "1" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(readyPage))
		}))
		defer server.Close()

		client, err := NewHTTPClient(ClientOptions{
			Timeout: 5 * time.Second,
			Cookie:  "token_v2=abc",
			Headers: map[string]string{"X-Test": "1"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := NewHTTPFetcher(client).Fetch(context.Background(), server.URL); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects invalid proxy address", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(ClientOptions{ProxyAddress: "localhost"})
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("accepts valid proxy address", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientOptions{ProxyAddress: "127.0.0.1:9050"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Transport == nil {
			t.Error("expected a transport")
		}
	})
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"[::1]:1080", true},
		{"localhost", false},
		{":1080", false},
		{"localhost:0", false},
		{"localhost:65536", false},
		{"localhost:port", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestContainsClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		html  string
		class string
		want  bool
	}{
		{"exact class", `<div class="notion-page-content"></div>`, "notion-page-content", true},
		{"one of several classes", `<div class="a notion-page-content b"></div>`, "notion-page-content", true},
		{"substring is not a match", `<div class="notion-page-content-x"></div>`, "notion-page-content", false},
		{"absent", `<div class="notion-app"></div>`, "notion-page-content", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := containsClass([]byte(tt.html), tt.class)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("containsClass() = %v, want %v", got, tt.want)
			}
		})
	}
}

// writeFakeBrowser writes a shell script that stands in for Chrome.
func writeFakeBrowser(t *testing.T, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake browser script requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil { //nolint:gosec // test executable
		t.Fatalf("failed to write fake browser: %v", err)
	}
	return path
}

func TestChromeFetcher(t *testing.T) {
	t.Parallel()

	// Subtests run sequentially: exec'ing a freshly written script while
	// another goroutine forks can fail with ETXTBSY.
	t.Run("browser that fails to start", func(t *testing.T) {
		browser := writeFakeBrowser(t, "echo 'cannot open display' >&2\nexit 3\n")

		_, err := NewChromeFetcher(WithChromePath(browser)).Fetch(context.Background(), "https://example.com")
		if err == nil || errors.Is(err, ErrBrowserNotFound) {
			t.Errorf("expected browser start error, got %v", err)
		}
	})

	t.Run("timeout stops the browser", func(t *testing.T) {
		browser := writeFakeBrowser(t, "exec sleep 5\n")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := NewChromeFetcher(WithChromePath(browser)).Fetch(ctx, "https://example.com")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})

	t.Run("missing explicit path", func(t *testing.T) {
		f := NewChromeFetcher(WithChromePath(filepath.Join(t.TempDir(), "no-such-chrome")))
		_, err := f.Fetch(context.Background(), "https://example.com")
		if !errors.Is(err, ErrBrowserNotFound) {
			t.Errorf("expected ErrBrowserNotFound, got %v", err)
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		browser := writeFakeBrowser(t, "exit 0\n")
		f := NewChromeFetcher(WithChromePath(browser), WithChromeProxy("nope"))
		_, err := f.Fetch(context.Background(), "https://example.com")
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

func TestChromeLoadTasks(t *testing.T) {
	t.Parallel()

	t.Run("waits for the wait class then scrolls", func(t *testing.T) {
		t.Parallel()

		var dom string
		tasks := NewChromeFetcher(WithScroll(3, 10*time.Millisecond)).loadTasks("https://example.notion.site/CV", &dom)

		// navigate, wait, 3 x (wheel, sleep), outer HTML
		if len(tasks) != 9 {
			t.Fatalf("expected 9 actions, got %d", len(tasks))
		}

		wheels := 0
		for _, task := range tasks {
			ev, ok := task.(*input.DispatchMouseEventParams)
			if !ok {
				continue
			}
			wheels++
			if ev.Type != input.MouseWheel {
				t.Errorf("expected a wheel event, got %q", ev.Type)
			}
			if ev.DeltaY != scrollDistance || ev.X != viewportWidth/2 || ev.Y != viewportHeight/2 {
				t.Errorf("unexpected wheel event: %+v", ev)
			}
		}
		if wheels != 3 {
			t.Errorf("expected 3 wheel events, got %d", wheels)
		}
		if _, ok := tasks[2].(*input.DispatchMouseEventParams); !ok {
			t.Error("expected scrolling to start after the wait")
		}
	})

	t.Run("no wait class and no scrolling", func(t *testing.T) {
		t.Parallel()

		var dom string
		tasks := NewChromeFetcher(WithChromeWaitClass(""), WithScroll(0, 0)).loadTasks("https://example.com", &dom)
		if len(tasks) != 2 {
			t.Errorf("expected navigate and outer HTML only, got %d actions", len(tasks))
		}
	})
}

// lazyPage shows the content container after a delay and adds a block only
// when the page receives a wheel event, like Notion does below the fold.
const lazyPage = `<html><head><title>CV</title></head><body><div id="app"></div>
<script>
setTimeout(function () {
  var c = document.createElement('div');
  c.className = 'notion-page-content';
  c.innerHTML = '<div class="notion-text-block">연구 성과</div>';
  document.getElementById('app').appendChild(c);
  window.addEventListener('wheel', function () {
    if (document.getElementById('late')) { return; }
    var b = document.createElement('div');
    b.id = 'late';
    b.className = 'notion-text-block';
    b.textContent = 'Loaded on scroll';
    c.appendChild(b);
  });
}, 200);
</script></body></html>`

// TestChromeFetcherRealBrowser drives an installed Chrome or Chromium.
func TestChromeFetcherRealBrowser(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if findChrome(nil, runtime.GOOS) == "" {
		t.Skip("no Chrome or Chromium installed")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Path == "/shell" {
			_, _ = w.Write([]byte(shellPage))
			return
		}
		_, _ = w.Write([]byte(lazyPage))
	}))
	defer server.Close()

	t.Run("blocks loaded by scrolling are captured", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		f := NewChromeFetcher(WithScroll(2, 100*time.Millisecond))
		page, err := f.Fetch(ctx, server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(page.Raw), "Loaded on scroll") {
			t.Errorf("expected the lazily loaded block in the DOM:\n%s", page.Raw)
		}
	})

	t.Run("page that never shows the wait class", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		_, err := NewChromeFetcher(WithScroll(0, 0)).Fetch(ctx, server.URL+"/shell")
		if !errors.Is(err, ErrContentNotReady) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected ErrContentNotReady after the deadline, got %v", err)
		}
	})
}

func TestFindChrome(t *testing.T) {
	t.Parallel()

	browser := writeFakeBrowser(t, "exit 0\n")

	t.Run("custom path for the current OS wins", func(t *testing.T) {
		t.Parallel()
		got := findChrome([]config.ChromePath{{OS: "linux", Path: browser}}, "linux")
		if got != browser {
			t.Errorf("expected %q, got %q", browser, got)
		}
	})

	t.Run("custom path without OS applies everywhere", func(t *testing.T) {
		t.Parallel()
		got := findChrome([]config.ChromePath{{Path: browser}}, "darwin")
		if got != browser {
			t.Errorf("expected %q, got %q", browser, got)
		}
	})

	t.Run("custom path for another OS is ignored", func(t *testing.T) {
		t.Parallel()
		got := findChrome([]config.ChromePath{{OS: "windows", Path: browser}}, "linux")
		if got == browser {
			t.Errorf("path for windows should not be used on linux")
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("chrome renderer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		f, err := New(cfg, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Name() != config.RendererChrome {
			t.Errorf("expected chrome fetcher, got %q", f.Name())
		}
		chrome, ok := f.(*ChromeFetcher)
		if !ok {
			t.Fatalf("expected *ChromeFetcher, got %T", f)
		}
		if chrome.scrollSteps != cfg.ScrollSteps || chrome.scrollDelay != cfg.ScrollDelay {
			t.Errorf("scroll settings not applied: %d x %v", chrome.scrollSteps, chrome.scrollDelay)
		}
	})

	t.Run("http renderer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.Renderer = config.RendererHTTP
		f, err := New(cfg, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Name() != config.RendererHTTP {
			t.Errorf("expected http fetcher, got %q", f.Name())
		}
	})

	t.Run("unknown renderer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.Renderer = "lynx"
		if _, err := New(cfg, nil); !errors.Is(err, config.ErrUnknownRenderer) {
			t.Errorf("expected ErrUnknownRenderer, got %v", err)
		}
	})
}
