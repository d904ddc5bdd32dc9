package app

import (
	"testing"

	"tourpack-service/config"
	"tourpack-service/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGatewayRefusesSimulatedInProduction(t *testing.T) {
	_, err := NewGateway(config.EnvProduction, config.PaymentConfig{SimulatedAutoSettle: true})
	assert.ErrorContains(t, err, "STRIPE_SECRET_KEY")

	gw, err := NewGateway(config.EnvProduction, config.PaymentConfig{StripeSecretKey: "sk_test_123"})
	require.NoError(t, err)
	assert.IsType(t, &payment.StripeGateway{}, gw)
}

func TestNewGatewaySimulatedSettlesOnlyWhenAsked(t *testing.T) {
	gw, err := NewGateway("development", config.PaymentConfig{})
	require.NoError(t, err)
	sim, ok := gw.(*payment.SimulatedGateway)
	require.True(t, ok)
	assert.False(t, sim.AutoSettle)

	gw, err = NewGateway("development", config.PaymentConfig{SimulatedAutoSettle: true})
	require.NoError(t, err)
	sim, ok = gw.(*payment.SimulatedGateway)
	require.True(t, ok)
	assert.True(t, sim.AutoSettle)
}
