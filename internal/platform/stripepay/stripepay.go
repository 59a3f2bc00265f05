package stripepay

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type Config struct {
	APIKey   string
	Currency string
}

type ChargeRequest struct {
	Amount        float64
	Reference     string
	Description   string
	PaymentMethod string
	Metadata      map[string]string
}

type ChargeResult struct {
	ExternalRef string
	Status      billing.Status
}

// Gateway creates card payments as Stripe PaymentIntents.
type Gateway struct {
	log      *logger.Logger
	intents  *paymentintent.Client
	currency string
}

func New(log *logger.Logger, cfg Config) (*Gateway, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("missing STRIPE_API_KEY")
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Gateway{
		log:      log.With("client", "StripeGateway"),
		intents:  &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key},
		currency: currency,
	}, nil
}

func (g *Gateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	minor, err := MinorUnits(req.Amount)
	if err != nil {
		return ChargeResult{}, err
	}
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(minor),
		Currency:    stripe.String(g.currency),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	if pm := strings.TrimSpace(req.PaymentMethod); pm != "" {
		params.PaymentMethod = stripe.String(pm)
		params.Confirm = stripe.Bool(true)
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		}
	}
	if req.Reference != "" {
		params.SetIdempotencyKey(req.Reference)
		params.AddMetadata("transaction_ref", req.Reference)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		g.log.Warn("stripe payment intent failed", "transaction_ref", req.Reference, "error", err)
		return ChargeResult{}, fmt.Errorf("create payment intent: %w", err)
	}
	return ChargeResult{ExternalRef: pi.ID, Status: StatusOf(pi.Status)}, nil
}

// MinorUnits converts a decimal amount to cents.
func MinorUnits(amount float64) (int64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount must be positive")
	}
	return int64(math.Round(amount * 100)), nil
}

func StatusOf(s stripe.PaymentIntentStatus) billing.Status {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return billing.StatusSuccessful
	case stripe.PaymentIntentStatusCanceled:
		return billing.StatusFailed
	default:
		return billing.StatusPending
	}
}
