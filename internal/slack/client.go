package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL = "https://slack.com/api"

	methodPostMessage       = "chat.postMessage"
	methodConversationsList = "conversations.list"
	methodAuthTest          = "auth.test"
	methodOAuthAccess       = "oauth.v2.access"

	maxResponseBytes = 1 << 20
)

// Client talks to the Slack Web API on behalf of one Slack app.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient builds a client for the Web API at baseURL. A nil httpClient gets a
// client with a 10 second timeout.
func NewClient(baseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// PostMessage sends text to channel and returns the message timestamp.
func (c *Client) PostMessage(ctx context.Context, token, channel, text string) (string, error) {
	body, err := json.Marshal(postMessageRequest{Channel: channel, Text: text})
	if err != nil {
		return "", fmt.Errorf("PostMessage: failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(methodPostMessage), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("PostMessage: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var resp postMessageResponse
	if err := c.do(req, methodPostMessage, &resp); err != nil {
		return "", err
	}
	if !resp.Ok {
		return "", &APIError{Method: methodPostMessage, Code: resp.Error}
	}
	return resp.Ts, nil
}

// ListConversations returns up to limit conversations of the given types.
func (c *Client) ListConversations(ctx context.Context, token, types string, limit int) ([]Channel, error) {
	params := url.Values{}
	params.Set("types", types)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("exclude_archived", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(methodConversationsList)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ListConversations: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp conversationsListResponse
	if err := c.do(req, methodConversationsList, &resp); err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, &APIError{Method: methodConversationsList, Code: resp.Error}
	}
	return resp.Channels, nil
}

func (c *Client) AuthTest(ctx context.Context, token string) (*AuthTestResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(methodAuthTest), nil)
	if err != nil {
		return nil, fmt.Errorf("AuthTest: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp AuthTestResponse
	if err := c.do(req, methodAuthTest, &resp); err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, &APIError{Method: methodAuthTest, Code: resp.Error}
	}
	return &resp, nil
}

// ExchangeCode trades an authorization code from the install redirect for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthResponse, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {redirectURI},
	}
	return c.oauthAccess(ctx, form, false)
}

// RefreshToken performs the refresh_token grant with the app's confidential
// client credentials sent as HTTP basic auth.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*OAuthResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.oauthAccess(ctx, form, true)
}

func (c *Client) oauthAccess(ctx context.Context, form url.Values, basicAuth bool) (*OAuthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(methodOAuthAccess), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("OAuthAccess: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicAuth {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}

	var resp OAuthResponse
	if err := c.do(req, methodOAuthAccess, &resp); err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, &APIError{Method: methodOAuthAccess, Code: resp.Error}
	}
	return &resp, nil
}

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/" + method
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: Slack API responded with status %s", method, resp.Status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", method, err)
	}
	return nil
}
