package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads the bytes behind uri into destination, replacing any
// existing content there.
type Fetcher interface {
	Fetch(ctx context.Context, uri, destination string) error
}

// Checker reports whether uri is reachable without downloading it.
type Checker interface {
	Check(ctx context.Context, uri string) error
}

// DefaultUserAgent is sent with every HTTP request.
const DefaultUserAgent = "buildpack-packager"

var (
	// ErrUnsupportedScheme is returned for URIs other than http, https and file.
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
	// ErrBadStatus is wrapped by StatusError.
	ErrBadStatus = errors.New("unexpected http status")
	// ErrUnreachable is returned by Check.
	ErrUnreachable = errors.New("dependency uri is unreachable")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URI    string
	Status string
	Code   int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s, %s", e.URI, e.Status)
}

// Unwrap returns ErrBadStatus.
func (e *StatusError) Unwrap() error { return ErrBadStatus }

// Transport fetches http(s) URIs over HTTP and file URIs from local disk.
type Transport struct {
	// client performs HTTP requests.
	client *http.Client
	// timeout bounds a single Fetch or Check; zero leaves it unbounded.
	timeout time.Duration
	// userAgent is set on every request.
	userAgent string
}

// Option configures a Transport.
type Option func(*Transport)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTimeout bounds each call. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		if ua != "" {
			t.userAgent = ua
		}
	}
}

// NewTransport returns a Transport using http.DefaultClient unless overridden.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Fetch implements Fetcher.
func (t *Transport) Fetch(ctx context.Context, uri, destination string) error {
	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parse uri %q: %w", uri, err)
	}

	var body io.ReadCloser

	switch parsed.Scheme {
	case "http", "https":
		body, err = t.get(callCtx, uri)
	case "file", "":
		body, err = os.Open(localPath(parsed))
	default:
		return fmt.Errorf("%s: %w", uri, ErrUnsupportedScheme)
	}

	if err != nil {
		return fmt.Errorf("fetch %s: %w", uri, err)
	}

	defer func() {
		_ = body.Close()
	}()

	if err = writeFile(destination, body); err != nil {
		return fmt.Errorf("fetch %s: %w", uri, err)
	}

	return nil
}

// Check implements Checker. HTTP URIs are checked with HEAD and, when the
// server rejects HEAD, with GET.
func (t *Transport) Check(ctx context.Context, uri string) error {
	callCtx, cancel := t.callContext(ctx)
	defer cancel()

	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, uri, err)
	}

	switch parsed.Scheme {
	case "http", "https":
	case "file", "":
		if _, err = os.Stat(localPath(parsed)); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUnreachable, uri, err)
		}

		return nil
	default:
		return fmt.Errorf("%s: %w", uri, ErrUnsupportedScheme)
	}

	code, err := t.status(callCtx, http.MethodHead, uri)
	if err == nil && (code == http.StatusNotFound || code == http.StatusMethodNotAllowed) {
		code, err = t.status(callCtx, http.MethodGet, uri)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, uri, err)
	}

	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: status %d", ErrUnreachable, uri, code)
	}

	return nil
}

// get returns the body of a successful GET.
func (t *Transport) get(ctx context.Context, uri string) (io.ReadCloser, error) {
	response, err := t.do(ctx, http.MethodGet, uri)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_ = response.Body.Close()

		return nil, &StatusError{URI: uri, Status: response.Status, Code: response.StatusCode}
	}

	return response.Body, nil
}

// status performs a request and returns only the status code.
func (t *Transport) status(ctx context.Context, method, uri string) (int, error) {
	response, err := t.do(ctx, method, uri)
	if err != nil {
		return 0, err
	}

	_ = response.Body.Close()

	return response.StatusCode, nil
}

func (t *Transport) do(ctx context.Context, method, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", t.userAgent)

	return t.client.Do(req)
}

// callContext returns a context with the transport's timeout if configured,
// otherwise a cancellable child context without a deadline.
func (t *Transport) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, t.timeout)
}

// localPath turns a file URI (or a bare path) into a filesystem path.
func localPath(u *url.URL) string {
	p := u.Path
	if u.Opaque != "" {
		p = u.Opaque
	}

	if u.Host != "" && u.Host != "localhost" {
		p = "//" + u.Host + p
	}

	return filepath.FromSlash(p)
}

// writeFile streams r into path, removing the partial file on failure.
func writeFile(path string, r io.Reader) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}

		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	_, err = io.Copy(f, r)

	return err
}
