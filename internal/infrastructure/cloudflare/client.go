// Package cloudflare wraps cloudflare-go for the three things a deploy needs:
// account lookup, Workers KV values and Workers scripts.
package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	cf "github.com/cloudflare/cloudflare-go"
)

var (
	ErrNoAccount        = errors.New("could not find account ID - endpoint returned no accounts")
	ErrAmbiguousAccount = errors.New("could not find account ID - endpoint returned multiple accounts")
	ErrNotFound         = errors.New("cloudflare: value not found")
)

// Message is one entry of the envelope's errors or messages list.
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is returned when a call fails. Envelopes reporting success=false
// fail the call whatever the HTTP status was; Body then holds the envelope.
type APIError struct {
	Op     string
	Errors []Message
	Body   []byte
	Err    error
}

func (e *APIError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s:\n%s", e.Op, e.Body)
	}
	return fmt.Sprintf("%s:\n%v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type Client struct {
	api *cf.API
}

type Option func(*[]cf.Option)

// WithBaseURL points the client at another API root. Tests use it.
func WithBaseURL(baseURL string) Option {
	return func(opts *[]cf.Option) {
		*opts = append(*opts, cf.BaseURL(baseURL))
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *[]cf.Option) {
		if client != nil {
			*opts = append(*opts, cf.HTTPClient(client))
		}
	}
}

// WithRateLimit replaces the SDK's default of four requests per second.
// Zero or less keeps the default.
func WithRateLimit(rps float64) Option {
	return func(opts *[]cf.Option) {
		if rps > 0 {
			*opts = append(*opts, cf.UsingRateLimit(rps))
		}
	}
}

// WithRetries sets how often 429 and 5xx answers are retried.
func WithRetries(maxRetries int) Option {
	return func(opts *[]cf.Option) {
		*opts = append(*opts, cf.UsingRetryPolicy(maxRetries, 1, 30))
	}
}

func NewClient(token string, opts ...Option) (*Client, error) {
	var sdkOpts []cf.Option
	for _, opt := range opts {
		opt(&sdkOpts)
	}

	api, err := cf.NewWithAPIToken(token, sdkOpts...)
	if err != nil {
		return nil, fmt.Errorf("create cloudflare client: %w", err)
	}
	return &Client{api: api}, nil
}

// ResolveAccountID returns the only account visible to the token. Zero or
// several accounts are both configuration errors.
func (c *Client) ResolveAccountID(ctx context.Context) (string, error) {
	accounts, _, err := c.api.Accounts(ctx, cf.AccountsListParams{
		PaginationOptions: cf.PaginationOptions{PerPage: 50},
	})
	if err != nil {
		return "", &APIError{Op: "error listing accounts", Err: err}
	}

	switch len(accounts) {
	case 0:
		return "", ErrNoAccount
	case 1:
		return accounts[0].ID, nil
	default:
		return "", ErrAmbiguousAccount
	}
}

// PutValue writes one Workers KV value. KV keeps no content type; readers
// infer it from the key.
func (c *Client) PutValue(ctx context.Context, accountID, namespaceID, key string, body []byte) error {
	const op = "error uploading to KV"

	resp, err := c.api.WriteWorkersKVEntry(ctx, cf.AccountIdentifier(accountID), cf.WriteWorkersKVEntryParams{
		NamespaceID: namespaceID,
		Key:         key,
		Value:       body,
	})
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	return checkEnvelope(op, resp)
}

// GetValue reads one Workers KV value as raw bytes.
func (c *Client) GetValue(ctx context.Context, accountID, namespaceID, key string) ([]byte, error) {
	body, err := c.api.GetWorkersKV(ctx, cf.AccountIdentifier(accountID), cf.GetWorkersKVParams{
		NamespaceID: namespaceID,
		Key:         key,
	})
	if err != nil {
		var notFound *cf.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, &APIError{Op: "error reading from KV", Err: err}
	}
	return body, nil
}

// PutScript uploads a service-worker style bundle under name. Without module
// metadata or bindings the SDK sends it as a plain application/javascript body.
func (c *Client) PutScript(ctx context.Context, accountID, name string, body []byte) error {
	const op = "error uploading worker"

	resp, err := c.api.UploadWorker(ctx, cf.AccountIdentifier(accountID), cf.CreateWorkerParams{
		ScriptName: name,
		Script:     string(body),
	})
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	return checkEnvelope(op, resp.Response)
}

func checkEnvelope(op string, resp cf.Response) error {
	if resp.Success {
		return nil
	}

	errs := make([]Message, 0, len(resp.Errors))
	for _, info := range resp.Errors {
		errs = append(errs, Message{Code: info.Code, Message: info.Message})
	}
	body, _ := json.Marshal(struct {
		Success  bool              `json:"success"`
		Errors   []Message         `json:"errors"`
		Messages []cf.ResponseInfo `json:"messages"`
	}{Errors: errs, Messages: resp.Messages})

	return &APIError{Op: op, Errors: errs, Body: body}
}
