package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ruby.tgz", func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != DefaultUserAgent {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_, _ = w.Write([]byte("ruby-bytes"))
	})
	mux.HandleFunc("/no-head.tgz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/slow.tgz", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// TestTransport_FetchHTTP downloads a body and overwrites existing content.
func TestTransport_FetchHTTP(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	dest := filepath.Join(t.TempDir(), "ruby.tgz")
	require.NoError(t, os.WriteFile(dest, []byte("stale-and-longer-content"), 0o600))

	err := NewTransport().Fetch(context.Background(), ts.URL+"/ruby.tgz", dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "ruby-bytes", string(got))
}

// TestTransport_FetchHTTPStatus surfaces non-2xx responses and leaves no file behind.
func TestTransport_FetchHTTPStatus(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	dest := filepath.Join(t.TempDir(), "missing.tgz")

	err := NewTransport().Fetch(context.Background(), ts.URL+"/missing.tgz", dest)
	require.ErrorIs(t, err, ErrBadStatus)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)

	_, err = os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestTransport_FetchFile copies file URIs from local disk.
func TestTransport_FetchFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "sample_host")
	require.NoError(t, os.WriteFile(src, []byte("contents!"), 0o600))

	dest := filepath.Join(dir, "out")
	require.NoError(t, NewTransport().Fetch(context.Background(), "file://"+src, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "contents!", string(got))

	err = NewTransport().Fetch(context.Background(), "file://"+filepath.Join(dir, "nope"), dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestTransport_UnsupportedScheme rejects schemes it cannot serve.
func TestTransport_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	err := NewTransport().Fetch(context.Background(), "ftp://example.com/x", filepath.Join(t.TempDir(), "x"))
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

// TestTransport_Timeout bounds a single fetch when configured.
func TestTransport_Timeout(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	dest := filepath.Join(t.TempDir(), "slow.tgz")

	err := NewTransport(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), ts.URL+"/slow.tgz", dest)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestTransport_Check tries HEAD and falls back to GET.
func TestTransport_Check(t *testing.T) {
	t.Parallel()

	ts := newServer(t)
	tr := NewTransport(WithClient(ts.Client()))
	ctx := context.Background()

	require.NoError(t, tr.Check(ctx, ts.URL+"/ruby.tgz"))
	require.NoError(t, tr.Check(ctx, ts.URL+"/no-head.tgz"))
	require.ErrorIs(t, tr.Check(ctx, ts.URL+"/missing.tgz"), ErrUnreachable)

	local := filepath.Join(t.TempDir(), "dep")
	require.ErrorIs(t, tr.Check(ctx, "file://"+local), ErrUnreachable)
	require.NoError(t, os.WriteFile(local, nil, 0o600))
	require.NoError(t, tr.Check(ctx, "file://"+local))
}
