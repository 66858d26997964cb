package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/naveenspark/carpolicy/pkg/domain"
	"github.com/naveenspark/carpolicy/pkg/session"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 10 << 20 // 10 MB
)

// errRetryRejected is the expiry reason when the retried request is refused again.
var errRetryRejected = errors.New("request rejected after refresh")

// Client is the policy API client. It attaches the stored access token to
// every request and refreshes the session once when the backend answers 401.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	store      session.Store
	log        zerolog.Logger
	onExpired  func(reason error)
	refreshes  singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// given; WithTimeout does not modify it. A nil h keeps the default.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithTimeout sets the per-attempt timeout of the default HTTP client and
// bounds shared refreshes.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithSessionExpiredHandler registers fn to be called after the session has
// been torn down. It may run on the goroutine of a shared refresh rather than
// the one that issued the failing request.
func WithSessionExpiredHandler(fn func(reason error)) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// New creates a client for the API at baseURL. A nil store gets an in-memory one.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		store:   store,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.store == nil {
		c.store = session.NewMemoryStore()
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the stored session, or nil when signed out.
func (c *Client) Session() (*domain.Session, error) {
	s, err := c.store.Get()
	if err != nil {
		return nil, fmt.Errorf("client.Session: %w", err)
	}
	return s, nil
}

// attempt is the retry state of one logical request.
type attempt int

const (
	attemptInitial attempt = iota
	attemptRetried
)

// Do performs one logical request. Expected HTTP failures, transport failures
// and session expiry come back as a failed Outcome; the error is non-nil only
// when the request could not be built or a 2xx body is not valid JSON.
//
// A 401 triggers at most one refresh and at most one retry. A 401 on the retry,
// or a failed refresh, clears the session store and reports MsgSessionExpired.
// If ctx is cancelled while the refresh is pending, the outcome is a network
// error and the session is kept.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (Outcome, error) {
	reqID := uuid.NewString()
	log := c.log.With().
		Str("request_id", reqID).
		Str("method", spec.method()).
		Str("url", spec.URL).
		Logger()

	if spec.Anonymous {
		res, err := c.send(ctx, spec, "", reqID)
		if err != nil {
			return Outcome{}, err
		}
		return c.classify(res, true, log)
	}

	state := attemptInitial
	if spec.NoRetry {
		state = attemptRetried
	}
	for {
		token := c.accessToken(log)
		res, err := c.send(ctx, spec, token, reqID)
		if err != nil {
			return Outcome{}, err
		}
		if res.netErr != nil || res.status != http.StatusUnauthorized {
			return c.classify(res, false, log)
		}
		if state == attemptRetried {
			return c.expire(errRetryRejected, log), nil
		}
		if err := c.renew(ctx, token, log); err != nil {
			switch {
			case ctx.Err() != nil:
				log.Debug().Err(err).Msg("request cancelled during refresh")
				return Outcome{Status: 0, Message: MsgNetworkError, Cause: err}, nil
			case errors.Is(err, ErrSessionExpired):
				return expiredOutcome(err), nil
			}
			return c.expire(err, log), nil
		}
		state = attemptRetried
		log.Debug().Msg("retrying with refreshed session")
	}
}

func (c *Client) accessToken(log zerolog.Logger) string {
	s, err := c.store.Get()
	if err != nil {
		log.Warn().Err(err).Msg("session store unreadable, sending without token")
		return ""
	}
	if s == nil {
		return ""
	}
	return s.AccessToken
}

// renew makes a fresh access token available after failedToken was rejected.
// If another request already replaced the token, no refresh is issued.
func (c *Client) renew(ctx context.Context, failedToken string, log zerolog.Logger) error {
	if current := c.accessToken(log); current != "" && current != failedToken {
		log.Debug().Msg("session already refreshed by a concurrent request")
		return nil
	}
	_, err := c.Refresh(ctx)
	return err
}

// expire tears the session down and builds the terminal outcome.
func (c *Client) expire(reason error, log zerolog.Logger) Outcome {
	return expiredOutcome(c.endSession(reason, log))
}

// endSession clears the store, signals expiry and returns reason wrapped
// in ErrSessionExpired.
func (c *Client) endSession(reason error, log zerolog.Logger) error {
	if err := c.store.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear session")
	}
	log.Warn().Err(reason).Msg("session expired")
	if c.onExpired != nil {
		c.onExpired(reason)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, reason)
}

func expiredOutcome(cause error) Outcome {
	return Outcome{
		Status:  http.StatusUnauthorized,
		Message: MsgSessionExpired,
		Cause:   cause,
	}
}

// rawResponse is one attempt's result before classification.
type rawResponse struct {
	status int
	body   []byte
	netErr error
}

func (c *Client) send(ctx context.Context, spec RequestSpec, token, reqID string) (*rawResponse, error) {
	header := make(http.Header, len(spec.Header)+4)
	for k, v := range spec.Header {
		header.Set(k, v)
	}

	var reqBody io.Reader
	switch {
	case spec.Form != nil:
		reqBody = strings.NewReader(spec.Form.Encode())
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case spec.Body != nil:
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	req, err := http.NewRequestWithContext(ctx, spec.method(), c.resolve(spec.URL), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = header
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Del("Authorization")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &rawResponse{netErr: err}, nil
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &rawResponse{netErr: fmt.Errorf("read body: %w", err)}, nil
	}
	return &rawResponse{status: resp.StatusCode, body: body}, nil
}

func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return c.baseURL + "/" + strings.TrimLeft(target, "/")
}

// classify maps one attempt onto an Outcome. anonymous controls whether a 401
// is an ordinary failure (login, registration) rather than session expiry.
func (c *Client) classify(res *rawResponse, anonymous bool, log zerolog.Logger) (Outcome, error) {
	if res.netErr != nil {
		log.Warn().Err(res.netErr).Msg("network error")
		return Outcome{Status: 0, Message: MsgNetworkError, Cause: res.netErr}, nil
	}

	status := res.status
	switch {
	case status >= 200 && status < 300:
		data := bytes.TrimSpace(res.body)
		if len(data) == 0 {
			return Outcome{Success: true, Status: status}, nil
		}
		if !json.Valid(data) {
			return Outcome{}, fmt.Errorf("client: HTTP %d response is not valid JSON", status)
		}
		return Outcome{Success: true, Status: status, Data: json.RawMessage(data)}, nil

	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity ||
		(anonymous && status == http.StatusUnauthorized):
		body := decodeErrorBody(res.body)
		return Outcome{
			Status:    status,
			Message:   ExtractErrorMessage(body),
			ErrorBody: body,
		}, nil

	case status == http.StatusNotFound:
		return Outcome{Status: status, Message: MsgNotFound}, nil

	case status == http.StatusConflict:
		return Outcome{Status: status, Message: MsgConflict}, nil
	}

	log.Warn().Int("status", status).Msg("unexpected response status")
	return Outcome{Status: status, Message: MsgUnknown}, nil
}

// decodeErrorBody parses a JSON error payload, yielding nil when the body is
// empty or not JSON.
func decodeErrorBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	return v
}
