package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/byte4ever/bastion"
)

// ErrorClass tells the resilience layer how to treat an HTTP
// status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means the error is retriable (e.g. 429, 503).
	Transient
	// Permanent means the error is non-retriable (e.g. 400).
	Permanent
)

// ErrBodyNotReplayable is returned when a request with a body must be sent
// again but has no GetBody function.
var ErrBodyNotReplayable = errors.New("httpx: request body cannot be replayed")

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — caller injects classification logic
// without modifying the adapter.
type Classifier func(statusCode int) ErrorClass

// DefaultClassifier treats 408, 429 and 5xx except 501 as transient, every
// other 4xx and 5xx as permanent, and everything else as success.
func DefaultClassifier(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests:
		return Transient
	case statusCode == http.StatusNotImplemented:
		return Permanent
	case statusCode >= http.StatusInternalServerError:
		return Transient
	case statusCode >= http.StatusBadRequest:
		return Permanent
	default:
		return Success
	}
}

// StatusError is returned when the Classifier marks a status
// code as Transient or Permanent. The original response
// remains accessible for header/body inspection.
type StatusError struct {
	// Response is the original HTTP response that triggered
	// the error. The body has not been read or closed.
	Response   *http.Response
	StatusCode int
}

// Error returns a human-readable description of the status
// error.
func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.StatusCode)
}

// Client executes HTTP requests through a bastion policy,
// translating status codes into transient or permanent failures.
//
// Pattern: Adapter — bridges net/http and bastion's fault
// predicates.
type Client struct {
	hc *http.Client
	p  bastion.Policy[*http.Response]
	cl Classifier
}

// NewClient creates a Client. A nil hc selects http.DefaultClient
// and a nil cl selects [DefaultClassifier].
func NewClient(
	hc *http.Client,
	cl Classifier,
	p bastion.Policy[*http.Response],
) (*Client, error) {
	if p == nil {
		return nil, fmt.Errorf("httpx: %w: nil policy", bastion.ErrInvalidConfiguration)
	}

	if hc == nil {
		hc = http.DefaultClient
	}

	if cl == nil {
		cl = DefaultClassifier
	}

	return &Client{hc: hc, p: p, cl: cl}, nil
}

// Do sends req through the client's policy. On failure the returned
// response, when not nil, is the one carried by the *StatusError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var sent atomic.Int32

	return c.p.Execute(req.Context(), func(ctx context.Context) (*http.Response, error) {
		attempt := req.Clone(ctx)

		if sent.Add(1) > 1 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, bastion.Permanent(ErrBodyNotReplayable)
			}

			body, err := req.GetBody()
			if err != nil {
				return nil, bastion.Permanent(err)
			}

			attempt.Body = body
		}

		resp, err := c.hc.Do(attempt)
		if err != nil {
			return nil, err
		}

		switch c.cl(resp.StatusCode) {
		case Transient:
			return resp, bastion.Transient(&StatusError{Response: resp, StatusCode: resp.StatusCode})
		case Permanent:
			return resp, bastion.Permanent(&StatusError{Response: resp, StatusCode: resp.StatusCode})
		default:
			return resp, nil
		}
	}).Unpack()
}

// HandleStatus matches failures carrying one of the given status codes.
func HandleStatus(codes ...int) bastion.FaultPredicate[*http.Response] {
	return bastion.HandleErrorIf[*http.Response](func(err error) bool {
		var se *StatusError
		if !errors.As(err, &se) {
			return false
		}

		for _, code := range codes {
			if se.StatusCode == code {
				return true
			}
		}

		return false
	})
}

// DiscardResponse is a retry option that drains and closes the body of a
// failed response before the next attempt, so the connection can be reused.
func DiscardResponse() any {
	return bastion.OnRetry(func(
		_ *bastion.ExecutionContext,
		o bastion.Outcome[*http.Response],
		_ int,
		_ time.Duration,
	) {
		if o.Value == nil || o.Value.Body == nil {
			return
		}

		_, _ = io.Copy(io.Discard, o.Value.Body)
		_ = o.Value.Body.Close()
	})
}
