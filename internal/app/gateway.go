package app

import (
	"errors"

	"tourpack-service/config"
	"tourpack-service/internal/payment"
	"tourpack-service/internal/util"

	"go.uber.org/zap"
)

// NewGateway picks the card processor. Production requires a Stripe key;
// elsewhere a missing key selects the simulated gateway.
func NewGateway(env string, cfg config.PaymentConfig) (payment.Gateway, error) {
	if cfg.StripeSecretKey != "" {
		return payment.NewStripeGateway(cfg.StripeSecretKey), nil
	}
	if env == config.EnvProduction {
		return nil, errors.New("STRIPE_SECRET_KEY must be set in production")
	}

	util.GetLogger().Warn("STRIPE_SECRET_KEY not set, using simulated payment gateway",
		zap.Bool("auto_settle", cfg.SimulatedAutoSettle))
	return payment.NewSimulatedGateway(cfg.SimulatedAutoSettle), nil
}
