// Package jira is a lightweight Jira REST client used by the jira document
// loader. It covers JQL search with pagination.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPageSize = 50

// Issue is a Jira issue with the fields the loader cares about.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields carries the subset of issue fields to turn into documents.
type Fields struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Status      *Status    `json:"status,omitempty"`
	IssueType   *IssueType `json:"issuetype,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
}

// Status is the workflow status of an issue.
type Status struct {
	Name string `json:"name"`
}

// IssueType names the kind of issue (Story, Bug, Task).
type IssueType struct {
	Name string `json:"name"`
}

type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

type errorResponse struct {
	ErrorMessages []string `json:"errorMessages"`
}

// Client is a minimal Jira API client authenticated with an API token.
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
}

// New creates a Jira client. baseURL is the site root, for Cloud typically
// "https://<site>.atlassian.net".
func New(baseURL, email, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("jira API token is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SearchIssues runs a JQL query and returns every matching issue, following
// pagination until the result set is exhausted.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var all []Issue
	startAt := 0

	for {
		endpoint := fmt.Sprintf("%s/rest/api/2/search?jql=%s&startAt=%d&maxResults=%d&fields=summary,description,status,issuetype,labels",
			c.baseURL, url.QueryEscape(jql), startAt, defaultPageSize)

		resp, err := c.search(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("jql %q: %w", jql, err)
		}

		all = append(all, resp.Issues...)
		startAt += len(resp.Issues)
		if startAt >= resp.Total || len(resp.Issues) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) search(ctx context.Context, endpoint string) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.email != "" {
		req.SetBasicAuth(c.email, c.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && len(apiErr.ErrorMessages) > 0 {
			return nil, fmt.Errorf("jira API: %s (status %d)", strings.Join(apiErr.ErrorMessages, "; "), resp.StatusCode)
		}
		return nil, fmt.Errorf("jira API: unexpected status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &parsed, nil
}

// PlainText renders an issue as a text document: key and summary first,
// then the description and labels.
func (i *Issue) PlainText() string {
	var sb strings.Builder
	sb.WriteString(i.Key)
	sb.WriteString(": ")
	sb.WriteString(i.Fields.Summary)
	sb.WriteString("\n\n")
	if i.Fields.Description != "" {
		sb.WriteString(i.Fields.Description)
		sb.WriteString("\n\n")
	}
	if len(i.Fields.Labels) > 0 {
		sb.WriteString("Labels: ")
		sb.WriteString(strings.Join(i.Fields.Labels, ", "))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// BrowseURL is the web link to the issue.
func (c *Client) BrowseURL(issueKey string) string {
	return c.baseURL + "/browse/" + issueKey
}
