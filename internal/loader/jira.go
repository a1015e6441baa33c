package loader

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/quarry-ai/quarry/internal/document"
	"github.com/quarry-ai/quarry/internal/jira"
)

// jiraLoader loads issues addressed as jira://PROJECT. Params["jql"]
// overrides the default project query.
type jiraLoader struct {
	client *jira.Client
	jql    string
}

func newJira(cfg Config, sourceURL string) (*jiraLoader, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme != "jira" || u.Host == "" {
		return nil, fmt.Errorf("loader: invalid jira URL %q, want jira://PROJECT", sourceURL)
	}

	baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("JIRA_BASE_URL"))
	email := firstNonEmpty(cfg.Email, os.Getenv("JIRA_EMAIL"))
	token := firstNonEmpty(cfg.Token, os.Getenv("JIRA_API_TOKEN"))
	if baseURL == "" {
		return nil, fmt.Errorf("loader: JIRA_BASE_URL is not set and no base_url configured")
	}
	if token == "" {
		return nil, fmt.Errorf("loader: JIRA_API_TOKEN is not set and no token configured")
	}

	client, err := jira.New(baseURL, email, token)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	jql := cfg.Params["jql"]
	if jql == "" {
		jql = fmt.Sprintf("project = %s ORDER BY created DESC", u.Host)
	}

	return &jiraLoader{client: client, jql: jql}, nil
}

func (l *jiraLoader) Load(ctx context.Context) ([]document.Document, error) {
	issues, err := l.client.SearchIssues(ctx, l.jql)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("loader: jira query %q matched no issues", l.jql)
	}

	docs := make([]document.Document, 0, len(issues))
	for _, issue := range issues {
		meta := map[string]string{
			document.MetaSourceURL: l.client.BrowseURL(issue.Key),
			"issue_key":            issue.Key,
			"title":                issue.Fields.Summary,
		}
		if issue.Fields.Status != nil {
			meta["status"] = issue.Fields.Status.Name
		}
		if issue.Fields.IssueType != nil {
			meta["issue_type"] = issue.Fields.IssueType.Name
		}
		docs = append(docs, document.Document{
			Content:  issue.PlainText(),
			Metadata: meta,
		})
	}
	return docs, nil
}
