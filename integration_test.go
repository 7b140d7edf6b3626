package bastion_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/bastion"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

var errUnavailable = errors.New("upstream unavailable")

// fetchQuote calls the quote endpoint and classifies 5xx as transient and
// 4xx as permanent.
func fetchQuote(url string) bastion.Operation[quote] {
	return func(ctx context.Context) (quote, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return quote{}, bastion.Permanent(err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return quote{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, resp.Body)
			return quote{}, bastion.Transient(fmt.Errorf("%w: status %d", errUnavailable, resp.StatusCode))
		case resp.StatusCode >= 400:
			return quote{}, bastion.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		var q quote
		if err = json.NewDecoder(resp.Body).Decode(&q); err != nil {
			return quote{}, bastion.Permanent(err)
		}

		return q, nil
	}
}

// ---------------------------------------------------------------------------
// End-to-end over HTTP
// ---------------------------------------------------------------------------

func TestIntegrationRecoversFromFlakyServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(quote{Symbol: "ACME", Price: 12.5})
	}))
	defer srv.Close()

	var retries atomic.Int32
	retry := mustRetry(t, 3, bastion.Constant(time.Millisecond), bastion.HandleTransient[quote](),
		bastion.WithHooks(bastion.Hooks{
			OnRetry: func(context.Context, bastion.RetryEvent) { retries.Add(1) },
		}))
	timeout := mustTimeout[quote](t, time.Second)

	q, err := mustWrap[quote](t, retry, timeout).Do(context.Background(), fetchQuote(srv.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if q != (quote{Symbol: "ACME", Price: 12.5}) {
		t.Fatalf("quote = %+v", q)
	}
	if hits.Load() != 3 || retries.Load() != 2 {
		t.Fatalf("hits = %d, retries = %d, want 3 and 2", hits.Load(), retries.Load())
	}
}

func TestIntegrationPermanentErrorStopsRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	retry := mustRetry(t, 5, bastion.Immediate(), bastion.HandleTransient[quote]())

	_, err := retry.Execute(context.Background(), fetchQuote(srv.URL)).Unpack()
	if !bastion.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

// A hanging server is cut off per attempt and the last good quote is served.
func TestIntegrationLastKnownGoodAfterTimeouts(t *testing.T) {
	var slow atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_ = json.NewEncoder(w).Encode(quote{Symbol: "ACME", Price: 10})
	}))
	defer srv.Close()

	lkg := bastion.NewLastKnownGood(bastion.NewMapCache[string, quote](nil), time.Hour)
	fb := mustFallback(t, bastion.HandleError[quote](), lkg.Producer("ACME"))
	retry := mustRetry(t, 1, bastion.Immediate(), bastion.HandleErrorIs[quote](bastion.ErrTimeoutExceeded))
	timeout := mustTimeout[quote](t, 20*time.Millisecond)
	p := mustWrap[quote](t, fb, retry, timeout)

	op := lkg.Record("ACME", fetchQuote(srv.URL))

	if q, err := p.Do(context.Background(), op); err != nil || q.Price != 10 {
		t.Fatalf("warm-up Do() = %+v, %v", q, err)
	}

	slow.Store(true)

	start := time.Now()
	q, err := p.Do(context.Background(), op)
	if err != nil || q.Price != 10 {
		t.Fatalf("Do() = %+v, %v, want last known quote", q, err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Do() took %v, want two short timeouts", elapsed)
	}
}

func TestIntegrationConfiguredPipelineOverHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	path := writeTestFile(t, `{"pipelines": {"quotes": {"policies": [
		{"type": "fallback", "value": {"symbol": "ACME", "price": 0}},
		{"type": "retry", "handle": "transient", "max_attempts": 2, "backoff": "constant", "base_delay": "1ms"},
		{"type": "timeout", "timeout": "1s"}
	]}}}`)

	reg, err := bastion.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	p, err := bastion.GetPipeline[quote](reg, "quotes")
	if err != nil {
		t.Fatalf("GetPipeline() error = %v", err)
	}

	q, err := p.Do(context.Background(), fetchQuote(srv.URL))
	if err != nil || q != (quote{Symbol: "ACME"}) {
		t.Fatalf("Do() = %+v, %v, want configured fallback", q, err)
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d, want 3", hits.Load())
	}
}
