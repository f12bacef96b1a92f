// Package fetch issues GET requests against the registry: bounded retries
// that honour Retry-After, conditional revalidation through the disk cache,
// and caps on body size and content type.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/insertwatch/internal/cache"
)

// ErrUnsupportedContentType is returned when the response Content-Type is not
// in the client's allow list.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// ErrBodyTooLarge is returned when a response body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

var errCacheVanished = errors.New("304 without a cached body")

// StatusError reports a non-2xx response. RetryAfter is the server's
// requested wait, zero when it sent none.
type StatusError struct {
	URL        string
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// HTMLTypes is the allow list for detail pages.
var HTMLTypes = []string{"text/html", "application/xhtml+xml"}

// Defaults applied when the corresponding Client field is zero.
const (
	DefaultBackoff       = 200 * time.Millisecond
	DefaultMaxRetryAfter = 30 * time.Second
	DefaultMaxRedirects  = 5
	DefaultLanguage      = "zh-TW,zh;q=0.9,en;q=0.5"
)

// Client is safe for concurrent use once configured.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// AcceptLanguage is sent with every request. Empty means DefaultLanguage.
	AcceptLanguage string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt, not the whole Get.
	PerRequestTimeout time.Duration
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// MaxRetryAfter caps how long a Retry-After header may stall a retry.
	MaxRetryAfter time.Duration
	// Cache enables conditional requests. Nil disables caching.
	Cache *cache.HTTPCache

	// AllowedTypes holds accepted Content-Type prefixes (lowercase). Empty
	// accepts anything. A missing Content-Type header is always accepted.
	AllowedTypes []string
	// MaxBodyBytes caps the response body. Zero means no cap.
	MaxBodyBytes int64
	// MaxRedirects caps redirect hops. Zero means DefaultMaxRedirects.
	MaxRedirects int
}

type response struct {
	body        []byte
	contentType string
	etag        string
	lastMod     string
	notModified bool
}

// Get fetches rawURL and returns the body and its Content-Type. A 304 answer
// to a conditional request is served from the cache.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, "", fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}

	var etag, lastMod string
	if c.Cache != nil {
		etag, lastMod = c.Cache.Validators(ctx, rawURL)
	}
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		res, err := c.once(ctx, rawURL, etag, lastMod)
		if err == nil && res.notModified {
			if entry, body, lerr := c.Cache.Lookup(ctx, rawURL); lerr == nil {
				ct := entry.ContentType
				if ct == "" {
					ct = res.contentType
				}
				return body, ct, nil
			}
			if etag == "" && lastMod == "" {
				return nil, "", errCacheVanished
			}
			// Ask again without validators; this does not use up an attempt.
			etag, lastMod = "", ""
			attempt--
			continue
		}
		if err == nil {
			if c.Cache != nil {
				if serr := c.Cache.Store(ctx, rawURL, res.contentType, res.etag, res.lastMod, res.body); serr != nil {
					log.Debug().Err(serr).Str("url", rawURL).Msg("cache store failed")
				}
			}
			return res.body, res.contentType, nil
		}
		if attempt >= attempts || !retryable(ctx, err) {
			return nil, "", err
		}
		wait := c.wait(attempt, err)
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", attempt).Dur("wait", wait).Msg("retrying")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, "", ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) once(ctx context.Context, rawURL, etag, lastMod string) (response, error) {
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	lang := c.AcceptLanguage
	if lang == "" {
		lang = DefaultLanguage
	}
	req.Header.Set("Accept-Language", lang)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType: resp.Header.Get("Content-Type"),
		etag:        resp.Header.Get("ETag"),
		lastMod:     resp.Header.Get("Last-Modified"),
	}
	switch {
	case resp.StatusCode == http.StatusNotModified && c.Cache != nil:
		out.notModified = true
		return out, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return out, &StatusError{
			URL:        rawURL,
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	case !c.allowedType(out.contentType):
		return out, fmt.Errorf("%w: %s", ErrUnsupportedContentType, out.contentType)
	}

	var r io.Reader = resp.Body
	if c.MaxBodyBytes > 0 {
		r = io.LimitReader(resp.Body, c.MaxBodyBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	if c.MaxBodyBytes > 0 && int64(len(b)) > c.MaxBodyBytes {
		return out, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.MaxBodyBytes)
	}
	out.body = b
	return out, nil
}

// httpClient copies the configured client and attaches the redirect policy.
func (c *Client) httpClient() *http.Client {
	base := http.Client{}
	if c.HTTPClient != nil {
		base = *c.HTTPClient
	}
	limit := c.MaxRedirects
	if limit <= 0 {
		limit = DefaultMaxRedirects
	}
	base.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= limit {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
	return &base
}

// retryable reports whether err is worth another attempt. Cancellation of
// the caller's context never is.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || (se.Code >= 500 && se.Code <= 599)
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) wait(attempt int, err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		limit := c.MaxRetryAfter
		if limit <= 0 {
			limit = DefaultMaxRetryAfter
		}
		return min(se.RetryAfter, limit)
	}
	base := c.Backoff
	if base <= 0 {
		base = DefaultBackoff
	}
	return time.Duration(attempt) * base
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) allowedType(ct string) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	for _, p := range c.AllowedTypes {
		if strings.HasPrefix(ct, p) {
			return true
		}
	}
	return false
}
