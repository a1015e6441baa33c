package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/security"
)

const defaultRequestsPerSec = 2.0

// webLoader fetches pages over HTTP. With MaxDepth <= 1 it loads the single
// page; deeper it crawls same-domain links, rate limited to keep the target
// site happy.
type webLoader struct {
	sourceURL string
	maxDepth  int
	limiter   *rate.Limiter
	guard     *security.URLGuard
}

func newWeb(cfg Config, sourceURL string) (*webLoader, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("loader: invalid web URL %q", sourceURL)
	}

	var guard *security.URLGuard
	if cfg.BlockPrivateHosts {
		guard = security.NewURLGuard()
		if err := guard.Validate(sourceURL); err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	return &webLoader{
		sourceURL: sourceURL,
		maxDepth:  cfg.MaxDepth,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		guard:     guard,
	}, nil
}

func (l *webLoader) Load(ctx context.Context) ([]document.Document, error) {
	u, _ := url.Parse(l.sourceURL)

	collector := colly.NewCollector(
		colly.MaxDepth(max(l.maxDepth, 1)),
		colly.AllowedDomains(u.Hostname()),
	)
	if l.guard != nil {
		// The validating dialer covers crawled links and redirects, not
		// just the seed URL.
		collector.WithTransport(l.guard.SafeTransport())
	}

	var (
		mu       sync.Mutex
		docs     []document.Document
		fetchErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		if err := l.limiter.Wait(ctx); err != nil {
			r.Abort()
		}
	})

	if l.maxDepth > 1 {
		collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
			// Visit errors (already seen, depth limit, off-domain) are
			// expected during a crawl.
			_ = e.Request.Visit(e.Attr("href"))
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		contentType := strings.ToLower(r.Headers.Get("Content-Type"))
		pageURL := r.Request.URL

		var doc document.Document
		var err error
		switch {
		case strings.Contains(contentType, "text/html"):
			doc, err = extractReadable(r.Body, pageURL)
		case strings.Contains(contentType, "text/plain") || contentType == "":
			doc = document.Document{Content: string(r.Body)}
		default:
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fetchErr = err
			return
		}
		if strings.TrimSpace(doc.Content) == "" {
			return
		}
		doc.SetMeta(document.MetaSourceURL, pageURL.String())
		docs = append(docs, doc)
	})

	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if fetchErr == nil {
			fetchErr = fmt.Errorf("loader: fetching %s: %w", r.Request.URL, err)
		}
	})

	if err := collector.Visit(l.sourceURL); err != nil {
		return nil, fmt.Errorf("loader: fetching %s: %w", l.sourceURL, err)
	}
	collector.Wait()

	if fetchErr != nil && len(docs) == 0 {
		return nil, fetchErr
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("loader: no textual content at %s", l.sourceURL)
	}
	return docs, nil
}

// extractReadable pulls the main content out of an HTML page. Readability
// first; when it finds nothing (landing pages, bare fragments) fall back to
// the stripped text of the whole document.
func extractReadable(body []byte, pageURL *url.URL) (document.Document, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		doc := document.Document{Content: strings.TrimSpace(article.TextContent)}
		if article.Title != "" {
			doc.SetMeta("title", article.Title)
		}
		return doc, nil
	}

	parsed, qerr := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if qerr != nil {
		if err != nil {
			return document.Document{}, fmt.Errorf("loader: extracting %s: %w", pageURL, err)
		}
		return document.Document{}, fmt.Errorf("loader: parsing %s: %w", pageURL, qerr)
	}
	parsed.Find("script, style, nav, footer").Remove()
	doc := document.Document{Content: strings.TrimSpace(parsed.Find("body").Text())}
	if title := strings.TrimSpace(parsed.Find("title").First().Text()); title != "" {
		doc.SetMeta("title", title)
	}
	return doc, nil
}
