package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the Automation Command Bridge API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	debug      bool
}

func getClient() (*Client, error) {
	baseURL := getConfigServer()
	token := getConfigToken()

	if token == "" {
		return nil, fmt.Errorf("API token is required. Set it via --token flag, BRIDGE_TOKEN env var, or ~/.bridgectl.yaml")
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		debug: flagDebug,
	}, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	if c.debug {
		fmt.Fprintf(os.Stderr, "DEBUG: %s %s\n", req.Method, req.URL.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "DEBUG: Status %d\n", resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Details []struct {
				Index   int    `json:"index"`
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"details"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			msg := errResp.Error
			for _, d := range errResp.Details {
				msg += fmt.Sprintf("\n  item %d: %s: %s", d.Index, d.Field, d.Message)
			}
			return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return body, nil
}

func (c *Client) Get(path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) Post(path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) Delete(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}
