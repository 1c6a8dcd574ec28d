package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/automation-bridge/run"
)

// defaultIssueLabel tags issues filed by the bridge so they can be
// filtered in the target repository.
const defaultIssueLabel = "automation-failure"

// GitHubNotifier files a GitHub issue for each failed run and returns
// the issue URL.
type GitHubNotifier struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
	labels     []string
}

// NewGitHubNotifier creates a notifier from an issue_tracker credential
// secret set. Required keys are "token" and "repository" (owner/repo).
// Optional keys are "base_url" for GitHub Enterprise and "labels" as a
// comma-separated list replacing the default label.
func NewGitHubNotifier(credentials map[string]string) (*GitHubNotifier, error) {
	token, ok := credentials["token"]
	if !ok || token == "" {
		return nil, fmt.Errorf("github: token is required")
	}

	repository, ok := credentials["repository"]
	if !ok || repository == "" {
		return nil, fmt.Errorf("github: repository is required")
	}
	owner, repo, err := parseOwnerRepo(repository)
	if err != nil {
		return nil, err
	}

	baseURL := "https://api.github.com"
	if u, ok := credentials["base_url"]; ok && u != "" {
		baseURL = strings.TrimRight(u, "/")
	}

	labels := []string{defaultIssueLabel}
	if raw, ok := credentials["labels"]; ok && strings.TrimSpace(raw) != "" {
		labels = labels[:0]
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
	}

	return &GitHubNotifier{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
		owner:      owner,
		repo:       repo,
		labels:     labels,
	}, nil
}

// parseOwnerRepo parses "owner/repo" into owner and repo.
func parseOwnerRepo(repository string) (owner, repo string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("github: invalid repository format, expected owner/repo")
	}
	return parts[0], parts[1], nil
}

func (n *GitHubNotifier) doRequest(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("github: failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return n.httpClient.Do(req)
}

// NotifyRunFailure files an issue describing the failed run and returns
// its HTML URL.
func (n *GitHubNotifier) NotifyRunFailure(ctx context.Context, r *run.Run, failed []*run.Item) (string, error) {
	reqBody := map[string]interface{}{
		"title": buildTitle(r, failed),
		"body":  buildBody(r, failed),
	}
	if len(n.labels) > 0 {
		reqBody["labels"] = n.labels
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues", n.baseURL, n.owner, n.repo)
	resp, err := n.doRequest(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("github: create issue failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var issue struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return "", fmt.Errorf("github: failed to decode response: %w", err)
	}

	return issue.HTMLURL, nil
}
