// Package confluence is a lightweight Confluence REST client used by the
// confluence document loader. It covers page retrieval and space listing
// with automatic pagination, nothing more.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultPageSize = 50

// Client is a minimal Confluence API client authenticated with an API token.
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
}

// New creates a Confluence client. baseURL is the site root, for Cloud
// typically "https://<site>.atlassian.net/wiki".
func New(baseURL, email, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("confluence base URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("confluence API token is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// GetPage retrieves a single page with its body expanded.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s?expand=body.storage,space", c.baseURL, url.PathEscape(pageID))

	var page Page
	if err := c.get(ctx, endpoint, &page); err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}
	return &page, nil
}

// ListSpacePages retrieves every current page in a space, following
// pagination until the listing is exhausted.
func (c *Client) ListSpacePages(ctx context.Context, spaceKey string) ([]Page, error) {
	var all []Page
	start := 0

	for {
		endpoint := fmt.Sprintf("%s/rest/api/content?spaceKey=%s&type=page&status=current&expand=body.storage,space&start=%d&limit=%d",
			c.baseURL, url.QueryEscape(spaceKey), start, defaultPageSize)

		var resp contentResponse
		if err := c.get(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("list pages in space %s: %w", spaceKey, err)
		}

		all = append(all, resp.Results...)
		if resp.Size < resp.Limit || resp.Size == 0 {
			break
		}
		start += resp.Size
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.email != "" {
		req.SetBasicAuth(c.email, c.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("confluence API: %s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("confluence API: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// PlainText converts a page's storage-format body (XHTML) to plain text.
// Block-level elements become paragraph breaks so downstream splitters can
// find sensible boundaries.
func (p *Page) PlainText() (string, error) {
	if p.Body == nil || p.Body.Storage.Value == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body.Storage.Value))
	if err != nil {
		return "", fmt.Errorf("parsing page body: %w", err)
	}

	var sb strings.Builder
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, pre, td, th").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	})

	text := strings.TrimSpace(sb.String())
	if text == "" {
		// No block elements, fall back to the whole document text.
		text = strings.TrimSpace(doc.Text())
	}
	return text, nil
}

// WebURL is the absolute link to the page in the Confluence UI, or the page
// ID when no link is available.
func (p *Page) WebURL(baseURL string) string {
	if p.Links.WebUI == "" {
		return baseURL + "/pages/" + p.ID
	}
	if strings.HasPrefix(p.Links.WebUI, "http") {
		return p.Links.WebUI
	}
	base := p.Links.Base
	if base == "" {
		base = baseURL
	}
	return strings.TrimRight(base, "/") + p.Links.WebUI
}
