package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mailops/inbox-rotor/internal/mail"
)

// defaultBaseURL is the Graph v1.0 API root.
const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// defaultFetchCount bounds how many unread messages one listing returns when
// the configuration does not say otherwise.
const defaultFetchCount = 250

// ClientConfig holds the configuration for creating a Client.
type ClientConfig struct {
	TenantID      string
	TokenEndpoint string // optional override; derived from TenantID when empty
	ClientID      string
	ClientSecret  string
	Mailbox       string
	Folder        string
	FetchCount    int
}

// Client is the Graph-backed mail store adapter. It lists unread messages in
// the watched folder, forwards them, marks them read, and sends outgoing
// mail. It acquires bearer tokens lazily through an internal token cache.
type Client struct {
	mailbox    string
	folder     string
	fetchCount int
	baseURL    string
	httpClient *http.Client
	token      *tokenCache
}

// New creates a Client for the given configuration.
func New(cfg ClientConfig) *Client {
	tokenURL := cfg.TokenEndpoint
	if tokenURL == "" {
		tokenURL = fmt.Sprintf(
			"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
			cfg.TenantID,
		)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	return newWithOverrides(cfg, defaultBaseURL, tokenURL, httpClient)
}

// newWithOverrides creates a Client with custom URLs and HTTP client, used
// for testing.
func newWithOverrides(cfg ClientConfig, baseURL, tokenURL string, httpClient *http.Client) *Client {
	fetchCount := cfg.FetchCount
	if fetchCount <= 0 {
		fetchCount = defaultFetchCount
	}

	return &Client{
		mailbox:    cfg.Mailbox,
		folder:     cfg.Folder,
		fetchCount: fetchCount,
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, httpClient),
	}
}

// ListUnread returns the unread messages in the watched folder, newest first,
// in the order the Graph API lists them. Only id, subject, and from are
// requested.
func (c *Client) ListUnread(ctx context.Context) ([]mail.Message, error) {
	query := url.Values{
		"$filter": {"isRead eq false"},
		"$top":    {strconv.Itoa(c.fetchCount)},
		"$select": {"id,subject,from"},
	}
	endpoint := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?%s",
		c.baseURL, url.PathEscape(c.mailbox), url.PathEscape(c.folder), query.Encode())

	body, err := c.do(ctx, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("list unread messages: %w", err)
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse message listing: %w", err)
	}

	messages := make([]mail.Message, 0, len(list.Value))
	for _, res := range list.Value {
		messages = append(messages, res.toMessage())
	}
	return messages, nil
}

// MarkRead flips the message's read flag in the mail store. It is called only
// after a confirmed-successful forward.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/users/%s/messages/%s",
		c.baseURL, url.PathEscape(c.mailbox), url.PathEscape(id))

	_, err := c.do(ctx, http.MethodPatch, endpoint, markReadRequest{IsRead: true}, http.StatusOK)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// Forward resends the message to a single recipient with an empty comment.
// Graph answers 202 Accepted on success.
func (c *Client) Forward(ctx context.Context, id, toName, toEmail string) error {
	endpoint := fmt.Sprintf("%s/users/%s/messages/%s/forward",
		c.baseURL, url.PathEscape(c.mailbox), url.PathEscape(id))

	payload := forwardRequest{
		Comment: "",
		ToRecipients: []recipientResource{
			{EmailAddress: emailAddress{Name: toName, Address: toEmail}},
		},
	}

	_, err := c.do(ctx, http.MethodPost, endpoint, payload, http.StatusAccepted)
	if err != nil {
		return fmt.Errorf("forward message: %w", err)
	}
	return nil
}

// Send delivers an outbound message from the watched mailbox via sendMail.
// This lets the Client double as the auto-reply sender.
func (c *Client) Send(ctx context.Context, out *mail.Outbound) error {
	endpoint := fmt.Sprintf("%s/users/%s/sendMail",
		c.baseURL, url.PathEscape(c.mailbox))

	_, err := c.do(ctx, http.MethodPost, endpoint, buildSendMailRequest(out), http.StatusAccepted)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Name returns the sender name used in logs.
func (c *Client) Name() string {
	return "msgraph"
}

// do performs one authenticated request and returns the response body. A 401
// triggers a single token refresh and immediate retry; there is no other
// retrying here — a failed call leaves its message for the next tick.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any, wantStatus int) ([]byte, error) {
	var bodyJSON []byte
	if payload != nil {
		var err error
		bodyJSON, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	tokenRefreshed := false
	for {
		token, err := c.token.Token(ctx)
		if err != nil {
			return nil, &AuthError{Err: err}
		}

		var reqBody io.Reader
		if bodyJSON != nil {
			reqBody = bytes.NewReader(bodyJSON)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if bodyJSON != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &APIError{
				Message:   fmt.Sprintf("HTTP request failed: %v", err),
				transient: true,
			}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &APIError{
				Message:   fmt.Sprintf("read response body: %v", readErr),
				transient: true,
			}
		}

		if resp.StatusCode == wantStatus {
			return body, nil
		}

		if resp.StatusCode == http.StatusUnauthorized && !tokenRefreshed {
			slog.Info("refreshing Graph API token after 401")
			if _, refreshErr := c.token.ForceRefresh(ctx); refreshErr != nil {
				return nil, &AuthError{Err: refreshErr}
			}
			tokenRefreshed = true
			continue
		}

		return nil, classifyError(resp.StatusCode, errorMessage(body))
	}
}

// APIError is a non-success response from the Graph API, classified as
// transient or permanent for logging and auditing. The delivery loop treats
// both the same way: the affected message stays unread and is retried on the
// next tick.
type APIError struct {
	StatusCode int
	Message    string
	transient  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the error is likely to clear on its own
// (throttling, service trouble, network failure).
func (e *APIError) Transient() bool {
	return e.transient
}

// classifyError categorizes an HTTP error response.
func classifyError(statusCode int, message string) *APIError {
	err := &APIError{
		StatusCode: statusCode,
		Message:    message,
	}

	switch {
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		err.transient = true
	default:
		err.transient = false
	}

	return err
}

// errorMessage extracts the human-readable message from a Graph error body,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var errResp graphErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}
