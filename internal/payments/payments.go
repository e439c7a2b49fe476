// Package payments defines the outbound payment collaborator boundary. The
// engine requests captures and refunds; it never moves money itself, and it
// learns outcomes through the reservation service's confirm/fail callbacks.
package payments

import (
	"context"
	"log"
	"sync"
)

// Gateway is the external payment processor boundary.
type Gateway interface {
	// RequestCapture asks the processor to collect amountCents against the
	// given reference. The outcome arrives later as a callback.
	RequestCapture(ctx context.Context, amountCents int64, reference string) error
	// RequestRefund asks the processor to return amountCents against the
	// original capture reference.
	RequestRefund(ctx context.Context, amountCents int64, reference string) error
}

// LogGateway records requests to a logger; the default wiring when no real
// processor is configured.
type LogGateway struct {
	Logger *log.Logger
}

func (g *LogGateway) RequestCapture(_ context.Context, amountCents int64, reference string) error {
	g.logf("payment capture requested amount=%d ref=%s", amountCents, reference)
	return nil
}

func (g *LogGateway) RequestRefund(_ context.Context, amountCents int64, reference string) error {
	g.logf("payment refund requested amount=%d ref=%s", amountCents, reference)
	return nil
}

func (g *LogGateway) logf(format string, args ...any) {
	logger := g.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

// Recorder captures gateway requests for assertions in tests.
type Recorder struct {
	mu       sync.Mutex
	Captures []Request
	Refunds  []Request
}

// Request is one recorded capture or refund.
type Request struct {
	AmountCents int64
	Reference   string
}

func (r *Recorder) RequestCapture(_ context.Context, amountCents int64, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Captures = append(r.Captures, Request{AmountCents: amountCents, Reference: reference})
	return nil
}

func (r *Recorder) RequestRefund(_ context.Context, amountCents int64, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Refunds = append(r.Refunds, Request{AmountCents: amountCents, Reference: reference})
	return nil
}

// LastRefund returns the most recent refund request, if any.
func (r *Recorder) LastRefund() (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Refunds) == 0 {
		return Request{}, false
	}
	return r.Refunds[len(r.Refunds)-1], true
}
