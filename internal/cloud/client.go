package cloud

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/blink-sync-core/internal/infrastructure/config"
)

const (
	defaultBaseURL    = "https://rest-{region}.immedia-semi.com"
	defaultRegion     = "prod"
	defaultUserAgent  = "blinksync"
	defaultAppVersion = "6.0.0"
	defaultTimeout    = 30 * time.Second
	defaultCacheGrace = 5 * time.Second

	headerToken    = "TOKEN_AUTH"
	headerAppBuild = "app-build"
	headerLocale   = "locale"
)

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer receives request-level events, typically for metrics.
type Observer interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
	ObserveRetry(reason string)
	ObserveCacheHit()
	ObserveLogin()
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int, time.Duration) {}
func (noopObserver) ObserveRetry(string)                       {}
func (noopObserver) ObserveCacheHit()                          {}
func (noopObserver) ObserveLogin()                             {}

// Credentials are the four strings the account needs, plus a display name.
type Credentials struct {
	Email      string
	Password   string
	PIN        string
	ClientUUID string
	DeviceName string
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	DefaultRegion string
	UserAgent     string
	AppVersion    string
	Timeout       time.Duration
	CacheGrace    time.Duration
	Retry         RetryPolicy
	Credentials   Credentials

	// Transport replaces the default single-connection transport (tests).
	Transport http.RoundTripper

	Logger   Logger
	Observer Observer
	Now      func() time.Time
}

// OptionsFromConfig builds Options from the account and cloud config blocks.
func OptionsFromConfig(account config.AccountConfig, cloudCfg config.CloudConfig) Options {
	return Options{
		BaseURL:       cloudCfg.BaseURL,
		DefaultRegion: cloudCfg.DefaultRegion,
		UserAgent:     cloudCfg.UserAgent,
		AppVersion:    cloudCfg.AppVersion,
		Timeout:       cloudCfg.RequestTimeout,
		CacheGrace:    cloudCfg.Cache.Grace,
		Retry:         RetryPolicyFromConfig(cloudCfg.Retry),
		Credentials: Credentials{
			Email:      account.Email,
			Password:   account.Password,
			PIN:        account.PIN,
			ClientUUID: account.ClientUUID,
			DeviceName: account.DeviceName,
		},
	}
}

// Client is the authenticated cloud API client.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Logins are serialised; concurrent 401s may still each force one
//     re-login, which is harmless.
type Client struct {
	http     *resty.Client
	opts     Options
	session  *Session
	cache    *Cache
	logger   Logger
	observer Observer
	now      func() time.Time

	loginMu sync.Mutex
}

// New creates a client. Zero-valued options fall back to defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = defaultRegion
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.AppVersion == "" {
		opts.AppVersion = defaultAppVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheGrace <= 0 {
		opts.CacheGrace = defaultCacheGrace
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Credentials.ClientUUID == "" {
		opts.Credentials.ClientUUID = newClientUUID()
	}

	transport := opts.Transport
	if transport == nil {
		transport = singleConnTransport()
	}

	httpClient := resty.New().
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetLogger(restyLogger{opts.Logger}).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader(headerAppBuild, opts.AppVersion).
		SetHeader(headerLocale, "en_US").
		SetHeader("Accept", "application/json")

	return &Client{
		http:     httpClient,
		opts:     opts,
		session:  &Session{},
		cache:    NewCache(opts.CacheGrace, opts.Now),
		logger:   opts.Logger,
		observer: opts.Observer,
		now:      opts.Now,
	}
}

// singleConnTransport caps the pool at one socket per host. The API is
// sensitive to out-of-order session state.
func singleConnTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:       1,
		MaxIdleConnsPerHost:   1,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// SetObserver replaces the request observer.
func (c *Client) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	c.observer = o
}

// Session returns a copy of the current session.
func (c *Client) Session() SessionInfo {
	return c.session.Snapshot()
}

// Cache exposes the transport cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Call describes one request.
type Call struct {
	Method string
	Path   string
	Body   any

	// MaxAge enables the cache for GET calls. Zero always fetches.
	MaxAge time.Duration

	// SkipAuth suppresses the implicit login. Used by the auth endpoints.
	SkipAuth bool
}

// Get fetches path, serving from the cache when an entry is younger than maxAge.
func (c *Client) Get(ctx context.Context, path string, maxAge time.Duration) (*Response, error) {
	return c.Do(ctx, Call{Method: http.MethodGet, Path: path, MaxAge: maxAge})
}

// Post sends body as JSON. Any cached GET of the same path is invalidated.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Call{Method: http.MethodPost, Path: path, Body: body})
}

// Do executes a call through the cache and retry layers.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	autoLogin := !call.SkipAuth

	if call.Method != http.MethodGet || call.MaxAge <= 0 {
		return c.do(ctx, call.Method, call.Path, call.Body, autoLogin)
	}

	if autoLogin {
		if err := c.Login(ctx, false); err != nil {
			return nil, err
		}
	}

	key := cacheKey(http.MethodGet, expandPath(call.Path, c.session.Snapshot()))
	if body, ok := c.cache.Lookup(key, call.MaxAge); ok {
		c.observer.ObserveCacheHit()
		return &Response{
			Status:      http.StatusOK,
			ContentType: "application/json",
			Kind:        BodyJSON,
			Body:        body,
			Cached:      true,
		}, nil
	}

	// The shared fetch outlives any one caller; each caller still stops
	// waiting on its own ctx. The request timeout bounds the fetch.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.cache.flight.DoChan(key, func() (any, error) {
		return c.do(fetchCtx, http.MethodGet, call.Path, nil, autoLogin)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Response), nil
	}
}

// do runs the retry loop. Classification order:
//  1. 401: clear the token and retry once after a forced login.
//  2. 5xx: clear the token, back off, retry.
//  3. 429: back off, retry with the same token.
//  4. other 4xx: *HTTPError.
//  5. transport failure: on an authenticated call, clear the token and retry once.
//
// 5xx and 429 share one attempt counter bounded by RetryPolicy.MaxAttempts.
func (c *Client) do(ctx context.Context, method, path string, payload any, autoLogin bool) (*Response, error) {
	var (
		reauthed         bool
		transportRetried bool
		attempts         int
	)

	for {
		if autoLogin {
			if err := c.Login(ctx, false); err != nil {
				return nil, err
			}
		}

		info := c.session.Snapshot()
		resolved := expandPath(path, info)

		start := c.now()
		resp, err := c.send(ctx, method, resolved, payload, info)
		elapsed := c.now().Sub(start)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.observer.ObserveRequest(method, 0, elapsed)
			if autoLogin && !transportRetried {
				transportRetried = true
				c.session.ClearToken()
				c.observer.ObserveRetry("transport")
				c.logger.Warn("cloud request failed, retrying after re-login",
					"method", method, "path", resolved, "error", err)
				continue
			}
			return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, resolved, err)
		}

		status := resp.StatusCode()
		c.observer.ObserveRequest(method, status, elapsed)

		switch {
		case status == http.StatusUnauthorized:
			httpErr := &HTTPError{Method: method, Path: resolved, Status: status, Body: resp.Body()}
			if !autoLogin || reauthed {
				return nil, fmt.Errorf("%w: %w", ErrAuth, httpErr)
			}
			reauthed = true
			c.session.ClearToken()
			c.observer.ObserveRetry("unauthorized")
			c.logger.Info("cloud session rejected, logging in again", "path", resolved)
			if err := c.Login(ctx, true); err != nil {
				return nil, err
			}
			continue

		case status >= http.StatusInternalServerError:
			c.session.ClearToken()
			if err := c.backoff(ctx, &attempts, c.opts.Retry.ServerErrorDelay, "server_error", method, resolved, status); err != nil {
				return nil, err
			}
			continue

		case status == http.StatusTooManyRequests:
			if err := c.backoff(ctx, &attempts, c.opts.Retry.RateLimitDelay, "rate_limited", method, resolved, status); err != nil {
				return nil, err
			}
			continue

		case status >= http.StatusBadRequest:
			return nil, &HTTPError{Method: method, Path: resolved, Status: status, Body: resp.Body()}
		}

		out := newResponse(status, resp.Header().Get("Content-Type"), resp.Body())
		key := cacheKey(http.MethodGet, resolved)
		if method == http.MethodGet {
			if status == http.StatusOK && out.Kind == BodyJSON {
				c.cache.Store(key, out.Body)
			}
		} else {
			c.cache.Invalidate(key)
		}
		return out, nil
	}
}

func (c *Client) backoff(ctx context.Context, attempts *int, base time.Duration, reason, method, path string, status int) error {
	*attempts++
	if *attempts >= c.opts.Retry.MaxAttempts {
		return fmt.Errorf("%w: %s %s: last status %d after %d attempts",
			ErrRetriesExhausted, method, path, status, *attempts)
	}

	delay := c.opts.Retry.Delay(base, *attempts-1)
	c.observer.ObserveRetry(reason)
	c.logger.Debug("cloud request retrying",
		"method", method, "path", path, "status", status, "attempt", *attempts, "delay", delay)
	return Sleep(ctx, delay)
}

func (c *Client) send(ctx context.Context, method, path string, payload any, info SessionInfo) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if info.Token != "" {
		req.SetHeader(headerToken, info.Token)
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}
	return req.Execute(method, c.resolveURL(path, info))
}

func (c *Client) resolveURL(path string, info SessionInfo) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	region := info.Region
	if region == "" {
		region = c.opts.DefaultRegion
	}
	base := strings.TrimRight(strings.ReplaceAll(c.opts.BaseURL, "{region}", region), "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// IsTransient reports whether err is a retry exhaustion or transport failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRetriesExhausted) || errors.Is(err, ErrTransport)
}

// restyLogger routes resty's internal messages through the structured logger.
type restyLogger struct{ l Logger }

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error("resty: " + fmt.Sprintf(format, v...))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn("resty: " + fmt.Sprintf(format, v...))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug("resty: " + fmt.Sprintf(format, v...))
}
