package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/config"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

const entryHTML = `<!DOCTYPE html>
<html>
<head>
  <link rel="stylesheet" href="/static/main.css">
  <script src="/static/vendor.js"></script>
</head>
<body>
  <div id="root">shop</div>
  <script>window.inlineRan = true</script>
</body>
</html>`

// testTarget collects loader callbacks.
type testTarget struct {
	mu     sync.Mutex
	name   string
	url    string
	src    *types.Source
	loads  []*dom.Element
	errs   []error
	signal chan struct{}
}

func newTestTarget(url string) *testTarget {
	return &testTarget{
		name:   "shop",
		url:    url,
		src:    types.NewSource(),
		signal: make(chan struct{}, 4),
	}
}

func (t *testTarget) Name() string          { return t.name }
func (t *testTarget) URL() string           { return t.url }
func (t *testTarget) Source() *types.Source { return t.src }

func (t *testTarget) OnLoad(html *dom.Element) {
	t.mu.Lock()
	t.loads = append(t.loads, html)
	t.mu.Unlock()
	t.signal <- struct{}{}
}

func (t *testTarget) OnLoadError(err error) {
	t.mu.Lock()
	t.errs = append(t.errs, err)
	t.mu.Unlock()
	t.signal <- struct{}{}
}

func (t *testTarget) wait(tb testing.TB, n int) {
	tb.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-t.signal:
		case <-time.After(5 * time.Second):
			tb.Fatal("timed out waiting for loader callbacks")
		}
	}
}

func testConfig() config.LoaderConfig {
	return config.LoaderConfig{
		Timeout:      5 * time.Second,
		RetryMax:     0,
		RetryWaitMin: 10 * time.Millisecond,
		RetryWaitMax: 50 * time.Millisecond,
	}
}

func newAppServer(tb testing.TB) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(entryHTML))
	})
	mux.HandleFunc("/static/main.css", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = w.Write([]byte("#root { color: red }"))
	})
	mux.HandleFunc("/static/vendor.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("window.vendor = 1"))
	})
	srv := httptest.NewServer(mux)
	tb.Cleanup(srv.Close)
	return srv
}

func TestLoadSplitsEntryAndSignalsBothChannels(t *testing.T) {
	srv := newAppServer(t)
	loader := NewLoader(NewClient(testConfig()), nil, logging.NewDefault())

	target := newTestTarget(srv.URL + "/")
	loader.Load(context.Background(), target)
	target.wait(t, 2)

	target.mu.Lock()
	defer target.mu.Unlock()

	if len(target.errs) != 0 {
		t.Fatalf("unexpected errors: %v", target.errs)
	}
	if len(target.loads) != 2 {
		t.Fatalf("expected 2 channel completions, got %d", len(target.loads))
	}

	// Exactly one completion carries the fragment, the other is the
	// script channel's nil; either arrival order is fine.
	var fragment *dom.Element
	for _, l := range target.loads {
		if l != nil {
			fragment = l
		}
	}
	if fragment == nil {
		t.Fatal("expected one completion to carry the html fragment")
	}
	if !strings.Contains(fragment.Render(), "shop") {
		t.Error("fragment must contain the body content")
	}
	if len(fragment.Query("script")) != 0 {
		t.Error("scripts must be stripped from the fragment")
	}
	if len(fragment.Query("link")) != 0 {
		t.Error("stylesheet links must be stripped from the fragment")
	}
}

func TestLoadExtractsScriptsInDocumentOrder(t *testing.T) {
	srv := newAppServer(t)
	loader := NewLoader(NewClient(testConfig()), nil, logging.NewDefault())

	target := newTestTarget(srv.URL + "/")
	loader.Load(context.Background(), target)
	target.wait(t, 2)

	if len(target.src.Order) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(target.src.Order))
	}
	first := target.src.Scripts[target.src.Order[0]]
	second := target.src.Scripts[target.src.Order[1]]

	if first.IsInline || first.Code != "window.vendor = 1" {
		t.Errorf("expected remote vendor script first, got %+v", first)
	}
	if !second.IsInline || !strings.Contains(second.Code, "inlineRan") {
		t.Errorf("expected inline script second, got %+v", second)
	}

	if len(target.src.Links) != 1 {
		t.Fatalf("expected 1 stylesheet, got %d", len(target.src.Links))
	}
	for _, link := range target.src.Links {
		if link.Code != "#root { color: red }" {
			t.Errorf("expected stylesheet body fetched, got %q", link.Code)
		}
	}
}

func TestLoadReportsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	loader := NewLoader(NewClient(testConfig()), nil, logging.NewDefault())
	target := newTestTarget(srv.URL + "/")
	loader.Load(context.Background(), target)
	target.wait(t, 1)

	target.mu.Lock()
	defer target.mu.Unlock()
	if len(target.errs) != 1 {
		t.Fatalf("expected 1 load error, got %d", len(target.errs))
	}
}

func TestLoadRejectsHTMLServedAsScript(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script src="/app.js"></script></body></html>`))
	})
	// An error page served with a 200 and a generic content type.
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>not found</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	loader := NewLoader(NewClient(testConfig()), nil, logging.NewDefault())
	target := newTestTarget(srv.URL + "/")
	loader.Load(context.Background(), target)

	// The html channel still completes; the script channel fails.
	target.wait(t, 2)

	target.mu.Lock()
	defer target.mu.Unlock()
	if len(target.errs) == 0 {
		t.Fatal("expected the script channel to reject an html body")
	}
}

func TestPrefetchCacheServesSecondLoad(t *testing.T) {
	var hits int
	var hitMu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		hitMu.Lock()
		hits++
		hitMu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(entryHTML))
	})
	mux.HandleFunc("/static/main.css", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#root {}"))
	})
	mux.HandleFunc("/static/vendor.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("window.vendor = 1"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	loader := NewLoader(NewClient(testConfig()), NewCache(), logging.NewDefault())

	first := newTestTarget(srv.URL + "/")
	loader.Load(context.Background(), first)
	first.wait(t, 2)

	// The store runs just after the final channel signal; poll for it.
	deadline := time.Now().Add(2 * time.Second)
	for !loader.cache.Has(first.url) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !loader.cache.Has(first.url) {
		t.Fatal("expected the source to be cached after the first load")
	}

	second := newTestTarget(srv.URL + "/")
	loader.Load(context.Background(), second)
	second.wait(t, 2)

	hitMu.Lock()
	entryHits := hits
	hitMu.Unlock()
	if entryHits != 1 {
		t.Errorf("expected cached second load, entry fetched %d times", entryHits)
	}
	if second.src.HTML == nil {
		t.Error("cached load must rebuild the html fragment")
	}
	if len(second.src.Order) != 2 {
		t.Errorf("cached load must carry the script set, got %d", len(second.src.Order))
	}
}
