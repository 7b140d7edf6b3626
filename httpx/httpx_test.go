package httpx_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/byte4ever/bastion"
	"github.com/byte4ever/bastion/httpx"
)

func retryPolicy(t *testing.T, maxAttempts int, opts ...any) *bastion.RetryPolicy[*http.Response] {
	t.Helper()

	p, err := bastion.NewRetry(
		maxAttempts,
		bastion.Immediate(),
		bastion.HandleTransient[*http.Response](),
		opts...,
	)
	require.NoError(t, err)

	return p
}

func TestDefaultClassifier(t *testing.T) {
	t.Parallel()

	for code, want := range map[int]httpx.ErrorClass{
		http.StatusOK:                  httpx.Success,
		http.StatusNoContent:           httpx.Success,
		http.StatusFound:               httpx.Success,
		http.StatusBadRequest:          httpx.Permanent,
		http.StatusNotFound:            httpx.Permanent,
		http.StatusRequestTimeout:      httpx.Transient,
		http.StatusTooManyRequests:     httpx.Transient,
		http.StatusInternalServerError: httpx.Transient,
		http.StatusNotImplemented:      httpx.Permanent,
		http.StatusServiceUnavailable:  httpx.Transient,
	} {
		require.Equal(t, want, httpx.DefaultClassifier(code), "status %d", code)
	}
}

func TestNewClientRequiresPolicy(t *testing.T) {
	t.Parallel()

	_, err := httpx.NewClient(nil, nil, nil)
	require.ErrorIs(t, err, bastion.ErrInvalidConfiguration)
}

func TestClientRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)

	cl, err := httpx.NewClient(srv.Client(), nil, retryPolicy(t, 3, httpx.DiscardResponse()))
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := cl.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.EqualValues(t, 3, hits.Load())
}

func TestClientStopsOnPermanentStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cl, err := httpx.NewClient(srv.Client(), nil, retryPolicy(t, 3))
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := cl.Do(req)
	require.True(t, bastion.IsPermanent(err))

	var se *httpx.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.StatusCode)
	require.Same(t, resp, se.Response)
	require.NoError(t, resp.Body.Close())
	require.EqualValues(t, 1, hits.Load())
}

func TestClientReplaysRequestBody(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	cl, err := httpx.NewClient(srv.Client(), nil, retryPolicy(t, 2, httpx.DiscardResponse()))
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL, strings.NewReader("payload"))
	require.NoError(t, err)

	resp, err := cl.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"payload", "payload"}, bodies)
}

func TestClientRejectsUnreplayableBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cl, err := httpx.NewClient(srv.Client(), nil, retryPolicy(t, 2, httpx.DiscardResponse()))
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL,
		io.NopCloser(strings.NewReader("once")))
	require.NoError(t, err)
	req.GetBody = nil

	_, err = cl.Do(req)
	require.ErrorIs(t, err, httpx.ErrBodyNotReplayable)
}

func TestClientTimeoutAndFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	stub := &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody}
	fb, err := bastion.NewFallback(
		bastion.HandleErrorIs[*http.Response](bastion.ErrTimeoutExceeded),
		bastion.FallbackValue(stub),
	)
	require.NoError(t, err)

	to, err := bastion.NewTimeout[*http.Response](20 * time.Millisecond)
	require.NoError(t, err)

	p, err := bastion.Wrap[*http.Response](fb, to)
	require.NoError(t, err)

	cl, err := httpx.NewClient(srv.Client(), nil, p)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := cl.Do(req)
	require.NoError(t, err)
	require.Same(t, stub, resp)
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()

	pred := httpx.HandleStatus(http.StatusTooManyRequests, http.StatusServiceUnavailable)

	match := bastion.Failure[*http.Response](bastion.Transient(&httpx.StatusError{StatusCode: 503}))
	other := bastion.Failure[*http.Response](&httpx.StatusError{StatusCode: 500})
	plain := bastion.Failure[*http.Response](errors.New("dial tcp: refused"))

	require.True(t, pred(match))
	require.False(t, pred(other))
	require.False(t, pred(plain))
	require.False(t, pred(bastion.Success[*http.Response](nil)))
}
