package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"seller-center/internal/model"
	"seller-center/internal/notify"
	"seller-center/pkg/apierror"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second

	maxResponseBytes = 16 << 20
)

// IdentitySource supplies the identity whose access token authorizes calls.
type IdentitySource interface {
	Current(ctx context.Context) *model.Identity
}

// Refresher renews an identity that is about to expire.
type Refresher interface {
	RefreshIfNeeded(ctx context.Context, identity *model.Identity) (*model.Identity, error)
}

// SignInTrigger starts a new interactive sign-in.
type SignInTrigger interface {
	TriggerSignIn(ctx context.Context)
}

type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Options struct {
	HTTPClient *http.Client
	Identity   IdentitySource
	// Refresher, when set, renews the identity before each attempt.
	Refresher   Refresher
	Notifier    notify.Notifier
	SignIn      SignInTrigger
	Limiter     *rate.Limiter
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	Logger      *slog.Logger
	Now         func() time.Time
}

// Dispatcher sends authenticated requests to the backend, retrying transient
// failures and turning terminal ones into notifications.
type Dispatcher struct {
	httpClient  *http.Client
	identity    IdentitySource
	refresher   Refresher
	notifier    notify.Notifier
	signIn      SignInTrigger
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
	now         func() time.Time
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		httpClient:  opts.HTTPClient,
		identity:    opts.Identity,
		refresher:   opts.Refresher,
		notifier:    opts.Notifier,
		signIn:      opts.SignIn,
		limiter:     opts.Limiter,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		sleep:       opts.Sleep,
		logger:      opts.Logger.With("component", "dispatcher"),
		now:         opts.Now,
	}
}

// call is the retry bookkeeping of one logical request.
// call is the per-Send state. Nothing on it outlives one Send.
type call struct {
	attempt       int
	correlationID string
}

type attemptResult struct {
	resp *Response
	err  error
	// sent is false when the request never reached the transport.
	sent bool
}

// Send performs req. A 2xx response is returned unchanged. Any other outcome
// yields an *apierror.ErrorResponse, except a cancelled ctx which yields
// ctx.Err().
func (d *Dispatcher) Send(ctx context.Context, req *Request) (*Response, error) {
	c := &call{}

	for {
		c.attempt++
		c.correlationID = NewCorrelationID(d.now())

		res := d.attempt(ctx, req, c)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res.err == nil && isSuccess(res.resp.StatusCode) {
			return res.resp, nil
		}
		if !res.sent {
			return nil, d.fail(ctx, req, c, res)
		}

		status := 0
		if res.resp != nil {
			status = res.resp.StatusCode
		}

		if Retryable(status) && c.attempt < d.maxAttempts {
			delay := d.backoff(c.attempt)
			d.logger.Warn("retrying request",
				"method", req.Method,
				"url", req.URL,
				"status", status,
				"attempt", c.attempt,
				"max_attempts", d.maxAttempts,
				"delay_ms", delay.Milliseconds(),
				"error", res.err,
			)
			if err := d.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		return nil, d.fail(ctx, req, c, res)
	}
}

// backoff returns the wait after the given 1-indexed failed attempt.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	return d.baseDelay * time.Duration(1<<(attempt-1))
}

func (d *Dispatcher) attempt(ctx context.Context, req *Request, c *call) attemptResult {
	target, err := url.Parse(req.URL)
	if err != nil {
		return attemptResult{err: fmt.Errorf("parse request url: %w", err)}
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return attemptResult{err: fmt.Errorf("build request: %w", err)}
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if identity := d.currentIdentity(ctx); identity.Valid() {
		httpReq.Header.Set("Authorization", "Bearer "+identity.AccessToken)
	}
	httpReq.Header.Set(HeaderCorrelationID, c.correlationID)
	httpReq.Header.Set(HeaderRequestTimestamp, RequestTimestamp(d.now()))

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return attemptResult{err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	started := time.Now()
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		d.logger.Debug("request failed",
			"method", method,
			"url", req.URL,
			"attempt", c.attempt,
			"correlation_id", c.correlationID,
			"error", err,
		)
		return attemptResult{err: err, sent: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return attemptResult{err: fmt.Errorf("read response: %w", err), sent: true}
	}

	d.logger.Debug("request completed",
		"method", method,
		"url", req.URL,
		"status", resp.StatusCode,
		"attempt", c.attempt,
		"correlation_id", c.correlationID,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return attemptResult{
		resp: &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data},
		sent: true,
	}
}

func (d *Dispatcher) currentIdentity(ctx context.Context) *model.Identity {
	if d.identity == nil {
		return nil
	}

	identity := d.identity.Current(ctx)
	if identity == nil || d.refresher == nil {
		return identity
	}

	refreshed, err := d.refresher.RefreshIfNeeded(ctx, identity)
	switch {
	case err == nil:
		return refreshed
	case errors.Is(err, model.ErrReauthenticationRequired), errors.Is(err, model.ErrNoSession):
		return nil
	default:
		// Soft failure: the current token may still be accepted.
		return identity
	}
}

func (d *Dispatcher) fail(ctx context.Context, req *Request, c *call, res attemptResult) error {
	if !res.sent {
		d.logger.Error("request not sent", "method", req.Method, "url", req.URL, "error", res.err)
		apiErr := apierror.New(string(notify.ClassRequestError), notify.ClassRequestError.MessageCode(), "", 0)
		d.raise(ctx, notify.ClassRequestError, apiErr, c)
		return apiErr
	}

	if res.resp == nil {
		d.logger.Error("request failed without response",
			"method", req.Method,
			"url", req.URL,
			"attempts", c.attempt,
			"correlation_id", c.correlationID,
			"error", res.err,
		)
		apiErr := apierror.New(string(notify.ClassConnectionError), notify.ClassConnectionError.MessageCode(), "", 0)
		d.raise(ctx, notify.ClassConnectionError, apiErr, c)
		return apiErr
	}

	status := res.resp.StatusCode
	apiErr := apierror.Parse(res.resp.Body, status)

	d.logger.Warn("request failed",
		"method", req.Method,
		"url", req.URL,
		"status", status,
		"code", apiErr.FirstCode(),
		"trace_id", apiErr.TraceID,
		"attempts", c.attempt,
		"correlation_id", c.correlationID,
	)

	if status == http.StatusUnauthorized {
		if d.signIn != nil {
			d.signIn.TriggerSignIn(ctx)
		}
		return apiErr
	}

	d.raise(ctx, ClassFor(status), apiErr, c)
	return apiErr
}

func (d *Dispatcher) raise(ctx context.Context, class notify.Class, apiErr *apierror.ErrorResponse, c *call) {
	n := notify.New(class, apiErr.HTTPStatus)
	n.TraceID = apiErr.TraceID
	n.CorrelationID = c.correlationID
	d.notifier.Notify(ctx, n)
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
