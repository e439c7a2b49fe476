// Package notify emits notification intents. Delivery (email/SMS/push) is an
// external collaborator; the engine only records what should be sent.
package notify

import (
	"log"
	"sync"
)

// Kind classifies an intent.
type Kind string

const (
	KindPurchaseConfirmed Kind = "purchase_confirmed"
	KindWaitlistOffer     Kind = "waitlist_offer"
	KindOfferExpired      Kind = "offer_expired"
	KindRefundIssued      Kind = "refund_issued"
	KindExpirationWarning Kind = "expiration_warning"
)

// Intent is a single notification to be delivered out of band.
type Intent struct {
	UserID  string
	Kind    Kind
	Payload map[string]string
}

// Emitter hands intents to the delivery collaborator.
type Emitter interface {
	Emit(intent Intent)
}

// LogEmitter writes intents to a logger; the default wiring when no real
// delivery integration is configured.
type LogEmitter struct {
	Logger *log.Logger
}

func (e *LogEmitter) Emit(intent Intent) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("notify user=%s kind=%s payload=%v", intent.UserID, intent.Kind, intent.Payload)
}

// Recorder captures intents for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	intents []Intent
}

func (r *Recorder) Emit(intent Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
}

// Intents returns a copy of everything emitted so far.
func (r *Recorder) Intents() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Intent(nil), r.intents...)
}

// ByKind filters recorded intents.
func (r *Recorder) ByKind(kind Kind) []Intent {
	var out []Intent
	for _, in := range r.Intents() {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out
}
