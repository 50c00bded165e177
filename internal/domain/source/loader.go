package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/microfront/internal/shared/dom"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

// Target is the loader's view of an app instance. OnLoad fires once per
// completed channel (HTML+styles, then scripts — in either order);
// OnLoadError fires once on the first failure.
type Target interface {
	Name() string
	URL() string
	Source() *types.Source
	OnLoad(html *dom.Element)
	OnLoadError(err error)
}

// Loader fetches and splits micro-app bundles.
type Loader struct {
	client  *Client
	cache   *Cache
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewLoader creates a loader. cache may be nil to disable prefetching.
func NewLoader(client *Client, cache *Cache, logger *logging.Logger) *Loader {
	return &Loader{client: client, cache: cache, logger: logger}
}

// WithMetrics adds metrics tracking to the loader.
func (l *Loader) WithMetrics(m *monitoring.Metrics) *Loader {
	l.metrics = m
	return l
}

// Load fetches the app's entry HTML, splits it into links/scripts/fragment,
// and drives the two completion channels asynchronously.
func (l *Loader) Load(ctx context.Context, t Target) {
	go l.load(ctx, t)
}

func (l *Loader) load(ctx context.Context, t Target) {
	if l.cache != nil {
		if cached, ok := l.cache.Get(t.URL()); ok {
			if l.metrics != nil {
				l.metrics.PrefetchHits.Inc()
			}
			l.deliverCached(t, cached)
			return
		}
		if l.metrics != nil {
			l.metrics.PrefetchMisses.Inc()
		}
	}

	body, _, err := l.client.Fetch(ctx, t.URL())
	if err != nil {
		l.fail(t, fmt.Errorf("failed to fetch entry html: %w", err))
		return
	}
	l.warnOnForeignCharset(t.Name(), body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		l.fail(t, fmt.Errorf("failed to parse entry html: %w", err))
		return
	}

	base, err := url.Parse(t.URL())
	if err != nil {
		l.fail(t, fmt.Errorf("invalid app url: %w", err))
		return
	}

	src := t.Source()
	l.extractLinks(doc, base, src)
	l.extractScripts(doc, base, src)

	fragment, err := l.extractFragment(doc)
	if err != nil {
		l.fail(t, err)
		return
	}

	// Two independent channels; either may signal first. The source is
	// cached only once both have completed.
	var completed atomic.Int32
	finish := func() {
		if completed.Add(1) == 2 {
			l.maybeStore(t, src)
		}
	}

	htmlDone := make(chan error, 1)
	scriptsDone := make(chan error, 1)
	go func() { htmlDone <- l.loadStyles(ctx, src) }()
	go func() { scriptsDone <- l.loadScripts(ctx, src) }()

	go func() {
		if err := <-htmlDone; err != nil {
			l.channelResult("html", false)
			l.fail(t, err)
			return
		}
		src.HTML = fragment
		l.channelResult("html", true)
		t.OnLoad(fragment)
		finish()
	}()
	go func() {
		if err := <-scriptsDone; err != nil {
			l.channelResult("scripts", false)
			l.fail(t, err)
			return
		}
		l.channelResult("scripts", true)
		t.OnLoad(nil)
		finish()
	}()
}

func (l *Loader) deliverCached(t Target, cached *types.Source) {
	src := t.Source()
	src.Links = cached.Links
	src.Scripts = cached.Scripts
	src.Order = cached.Order
	go func() {
		src.HTML = cached.HTML.Clone()
		t.OnLoad(src.HTML)
	}()
	go t.OnLoad(nil)
}

// maybeStore caches the fully loaded source.
func (l *Loader) maybeStore(t Target, src *types.Source) {
	if l.cache == nil || src.HTML == nil {
		return
	}
	l.cache.Put(t.URL(), src)
}

func (l *Loader) fail(t Target, err error) {
	if l.metrics != nil {
		l.metrics.LoadErrors.Inc()
	}
	l.logger.Error("source load failed",
		zap.String("app", t.Name()), zap.Error(err))
	t.OnLoadError(err)
}

func (l *Loader) channelResult(channel string, ok bool) {
	if l.metrics == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	l.metrics.SourceFetches.WithLabelValues(channel, result).Inc()
}

func (l *Loader) extractLinks(doc *goquery.Document, base *url.URL, src *types.Source) {
	doc.Find("link[rel=stylesheet]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		addr := resolveURL(base, href)
		src.Links[addr] = &types.Link{Address: addr, Rel: "stylesheet"}
		sel.Remove()
	})
}

func (l *Loader) extractScripts(doc *goquery.Document, base *url.URL, src *types.Source) {
	inline := 0
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		script := &types.Script{}
		if typ, _ := sel.Attr("type"); typ == "module" {
			script.Module = true
		}
		if _, ok := sel.Attr("defer"); ok {
			script.Defer = true
		}

		var key string
		if addr, ok := sel.Attr("src"); ok && addr != "" {
			script.Address = resolveURL(base, addr)
			key = script.Address
		} else {
			script.IsInline = true
			script.Code = sel.Text()
			key = fmt.Sprintf("inline-%d", inline)
			inline++
		}
		src.Scripts[key] = script
		src.Order = append(src.Order, key)
		sel.Remove()
	})
}

func (l *Loader) extractFragment(doc *goquery.Document) (*dom.Element, error) {
	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize body: %w", err)
	}
	fragment, err := dom.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to build fragment: %w", err)
	}
	return fragment, nil
}

// loadStyles fetches all stylesheet bodies; completion of this channel
// also covers the already-parsed HTML fragment.
func (l *Loader) loadStyles(ctx context.Context, src *types.Source) error {
	for _, link := range src.Links {
		body, _, err := l.client.Fetch(ctx, link.Address)
		if err != nil {
			return fmt.Errorf("failed to fetch stylesheet %s: %w", link.Address, err)
		}
		link.Code = string(body)
	}
	return nil
}

func (l *Loader) loadScripts(ctx context.Context, src *types.Source) error {
	for _, key := range src.Order {
		script := src.Scripts[key]
		if script.IsInline {
			continue
		}
		body, contentType, err := l.client.Fetch(ctx, script.Address)
		if err != nil {
			return fmt.Errorf("failed to fetch script %s: %w", script.Address, err)
		}
		if err := verifyScriptBody(body, contentType); err != nil {
			return fmt.Errorf("script %s: %w", script.Address, err)
		}
		script.Code = string(body)
	}
	return nil
}

// verifyScriptBody rejects responses that are clearly not JavaScript,
// catching error pages served with a 200 status.
func verifyScriptBody(body []byte, contentType string) error {
	if strings.Contains(contentType, "javascript") || strings.Contains(contentType, "ecmascript") {
		return nil
	}
	if mt := mimetype.Detect(body); mt.Is("text/html") {
		return fmt.Errorf("expected javascript, detected %s", mt.String())
	}
	return nil
}

func (l *Loader) warnOnForeignCharset(name string, body []byte) {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(body)
	if err != nil {
		return
	}
	if !strings.EqualFold(result.Charset, "UTF-8") && !strings.HasPrefix(result.Charset, "ISO-8859") {
		l.logger.Warn("entry html is not utf-8",
			zap.String("app", name), zap.String("charset", result.Charset))
	}
}

func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
