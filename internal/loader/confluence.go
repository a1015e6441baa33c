package loader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/quarry-ai/quarry/internal/confluence"
	"github.com/quarry-ai/quarry/internal/document"
)

// confluenceLoader loads pages addressed as confluence://SPACE (the whole
// space) or confluence://SPACE/pageID (one page).
type confluenceLoader struct {
	client   *confluence.Client
	baseURL  string
	spaceKey string
	pageID   string
}

func newConfluence(cfg Config, sourceURL string) (*confluenceLoader, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme != "confluence" || u.Host == "" {
		return nil, fmt.Errorf("loader: invalid confluence URL %q, want confluence://SPACE[/pageID]", sourceURL)
	}

	baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("CONFLUENCE_BASE_URL"))
	email := firstNonEmpty(cfg.Email, os.Getenv("CONFLUENCE_EMAIL"))
	token := firstNonEmpty(cfg.Token, os.Getenv("CONFLUENCE_API_TOKEN"))
	if baseURL == "" {
		return nil, fmt.Errorf("loader: CONFLUENCE_BASE_URL is not set and no base_url configured")
	}
	if token == "" {
		return nil, fmt.Errorf("loader: CONFLUENCE_API_TOKEN is not set and no token configured")
	}

	client, err := confluence.New(baseURL, email, token)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	return &confluenceLoader{
		client:   client,
		baseURL:  baseURL,
		spaceKey: u.Host,
		pageID:   strings.Trim(u.Path, "/"),
	}, nil
}

func (l *confluenceLoader) Load(ctx context.Context) ([]document.Document, error) {
	var pages []confluence.Page
	if l.pageID != "" {
		page, err := l.client.GetPage(ctx, l.pageID)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		pages = []confluence.Page{*page}
	} else {
		var err error
		pages, err = l.client.ListSpacePages(ctx, l.spaceKey)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("loader: no pages in confluence space %s", l.spaceKey)
		}
	}

	docs := make([]document.Document, 0, len(pages))
	for _, page := range pages {
		text, err := page.PlainText()
		if err != nil {
			return nil, fmt.Errorf("loader: page %s: %w", page.ID, err)
		}
		if text == "" {
			continue
		}
		docs = append(docs, document.Document{
			Content: text,
			Metadata: map[string]string{
				document.MetaSourceURL: page.WebURL(l.baseURL),
				"title":                page.Title,
				"space":                l.spaceKey,
				"page_id":              page.ID,
			},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("loader: confluence source %s yielded no content", l.spaceKey)
	}
	return docs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
