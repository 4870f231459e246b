package webhook

import (
	"context"

	"paygate/internal/models"
)

// Verifier authenticates and normalizes a raw delivery. payment.Gateway
// satisfies it.
type Verifier interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (*models.CanonicalWebhookEvent, error)
}

// Result describes what happened to one delivery.
type Result struct {
	Event   *models.CanonicalWebhookEvent
	Outcome Outcome
}

// Processor verifies a delivery before any dispatching happens.
type Processor struct {
	verifier   Verifier
	dispatcher *Dispatcher
}

func NewProcessor(verifier Verifier, dispatcher *Dispatcher) *Processor {
	return &Processor{verifier: verifier, dispatcher: dispatcher}
}

// Process verifies the signature, normalizes and dispatches. Verification
// errors are returned unchanged so callers can tell a forged delivery apart.
func (p *Processor) Process(ctx context.Context, body []byte, signature string) (*Result, error) {
	ev, err := p.verifier.HandleWebhook(ctx, body, signature)
	if err != nil {
		return nil, err
	}

	outcome, err := p.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &Result{Event: ev, Outcome: outcome}, nil
}
