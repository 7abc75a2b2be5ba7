package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// QueryPath is the single endpoint of the answering service.
	QueryPath = "/query"

	maxResponseBytes = 1 << 20
	maxErrorBodyLog  = 512
)

// Answerer sends one query to the answering service and returns its reply.
type Answerer interface {
	Ask(ctx context.Context, query string) (Reply, error)
}

// Request is the JSON body POSTed to QueryPath.
type Request struct {
	Query string `json:"query"`
}

// Reply is the decoded success payload. Answer is empty when the service
// omitted the field or sent null.
type Reply struct {
	Answer string `json:"answer"`
}

// Empty reports whether the reply carries no usable answer.
func (r Reply) Empty() bool {
	return strings.TrimSpace(r.Answer) == ""
}

// Client talks to the answering service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

var _ Answerer = &Client{}

type ClientOption func(*Client) error

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) error {
		if c == nil {
			return errors.New("answer: http client is nil")
		}
		cl.httpClient = c
		return nil
	}
}

// WithTimeout bounds the whole request. Zero keeps the transport default (no limit).
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) error {
		if d < 0 {
			return errors.Errorf("answer: negative timeout %s", d)
		}
		c := *cl.httpClient
		c.Timeout = d
		cl.httpClient = &c
		return nil
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) error {
		cl.userAgent = ua
		return nil
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(cl *Client) error {
		cl.logger = l
		return nil
	}
}

// NormalizeBaseURL trims whitespace and strips every trailing slash.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	base := NormalizeBaseURL(baseURL)
	if base == "" {
		return nil, ErrNoBaseURL
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{},
		userAgent:  "compliance-chat",
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the normalized service address.
func (c *Client) BaseURL() string { return c.baseURL }

// Endpoint returns the full URL of the query endpoint.
func (c *Client) Endpoint() string { return c.baseURL + QueryPath }

// Ask POSTs query and decodes the reply. A non-2xx status yields a
// *StatusError, an unparseable body an error matching ErrDecode.
func (c *Client) Ask(ctx context.Context, query string) (Reply, error) {
	body, err := json.Marshal(Request{Query: query})
	if err != nil {
		return Reply{}, errors.Wrap(err, "answer: failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Reply{}, errors.Wrap(err, "answer: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, errors.Wrapf(err, "answer: POST %s failed", c.Endpoint())
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Reply{}, errors.Wrap(err, "answer: failed to read response body")
	}

	c.logger.Debug().
		Str("endpoint", c.Endpoint()).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("answer service responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > maxErrorBodyLog {
			snippet = snippet[:maxErrorBodyLog]
		}
		return Reply{}, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Reply{}, &decodeError{cause: err}
	}
	return reply, nil
}
