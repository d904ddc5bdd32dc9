package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SimulatedGateway is an in-process processor for local runs without Stripe
// credentials. Intents are created in requires_payment_method and move to
// succeeded when Settle is called.
type SimulatedGateway struct {
	mu      sync.Mutex
	intents map[string]*PaymentIntent

	// AutoSettle marks intents succeeded as soon as they are created
	AutoSettle bool
}

func NewSimulatedGateway(autoSettle bool) *SimulatedGateway {
	return &SimulatedGateway{
		intents:    make(map[string]*PaymentIntent),
		AutoSettle: autoSettle,
	}
}

func (g *SimulatedGateway) CreateIntent(_ context.Context, req CreateIntentRequest) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := fmt.Sprintf("pi_sim_%s", uuid.New().String()[:12])
	meta := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		meta[k] = v
	}

	pi := &PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		Metadata:     meta,
	}
	if g.AutoSettle {
		pi.Status = StatusSucceeded
	}
	g.intents[id] = pi

	cp := *pi
	return &cp, nil
}

func (g *SimulatedGateway) RetrieveIntent(_ context.Context, id string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pi, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	cp := *pi
	return &cp, nil
}

func (g *SimulatedGateway) CancelIntent(_ context.Context, id string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pi, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	if pi.Status == StatusSucceeded {
		return nil, fmt.Errorf("payment intent %s already succeeded", id)
	}
	pi.Status = StatusCanceled
	cp := *pi
	return &cp, nil
}

// Settle sets the status of a known intent.
func (g *SimulatedGateway) Settle(id, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	pi, ok := g.intents[id]
	if !ok {
		return fmt.Errorf("no such payment intent: %s", id)
	}
	pi.Status = status
	return nil
}

// Put registers an intent directly. Used to seed fixtures.
func (g *SimulatedGateway) Put(pi *PaymentIntent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := *pi
	g.intents[pi.ID] = &cp
}
