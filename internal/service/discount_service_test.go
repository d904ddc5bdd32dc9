package service

import (
	"context"
	"testing"
	"time"

	"tourpack-service/internal/apperr"
	"tourpack-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDiscount(t *testing.T, env *testEnv, owner, code string, validUntil time.Time, used bool) {
	t.Helper()

	rec := &models.DiscountRecord{
		ID:                 code,
		OwnerEmail:         owner,
		DiscountPercentage: 20,
		Code:               code,
		SpinDate:           validUntil.Add(-7 * 24 * time.Hour),
		ValidUntil:         validUntil,
	}
	require.NoError(t, env.store.InsertSpin(context.Background(), rec, rec.SpinDate.Add(-48*time.Hour)))
	if used {
		require.NoError(t, env.store.MarkDiscountUsed(context.Background(), code, owner, rec.SpinDate))
	}
}

func TestValidateReasons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pkg := env.createPackage(t, "guide@example.com", 3)

	seedDiscount(t, env, "a@example.com", "SPINVALID1", testNow.Add(time.Hour), false)
	seedDiscount(t, env, "b@example.com", "SPINUSED01", testNow.Add(time.Hour), true)
	seedDiscount(t, env, "c@example.com", "SPINEXPIRE", testNow, false)
	seedDiscount(t, env, "d@example.com", "SPINPAST01", testNow.Add(-time.Hour), false)

	cases := []struct {
		name      string
		owner     string
		code      string
		packageID string
		valid     bool
		reason    string
	}{
		{"valid", "a@example.com", "SPINVALID1", pkg.ID, true, ""},
		{"lowercase input", "a@example.com", " spinvalid1 ", pkg.ID, true, ""},
		{"another owner", "z@example.com", "SPINVALID1", pkg.ID, false, ReasonNotFound},
		{"unknown code", "a@example.com", "SPINNOPE00", pkg.ID, false, ReasonNotFound},
		{"used", "b@example.com", "SPINUSED01", pkg.ID, false, ReasonAlreadyUsed},
		{"expires now", "c@example.com", "SPINEXPIRE", pkg.ID, false, ReasonExpired},
		{"expired", "d@example.com", "SPINPAST01", pkg.ID, false, ReasonExpired},
		{"missing package", "a@example.com", "SPINVALID1", "nope", false, ReasonPackageNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := env.discounts.Validate(ctx, tc.owner, tc.code, tc.packageID)
			require.NoError(t, err)
			assert.Equal(t, tc.valid, res.Valid)
			assert.Equal(t, tc.reason, res.Reason)
			if tc.valid {
				require.NotNil(t, res.Discount)
				assert.Equal(t, 20, res.Discount.DiscountPercentage)
			} else {
				assert.Nil(t, res.Discount)
			}
		})
	}
}

func TestValidateRejectsEmptyInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.discounts.Validate(context.Background(), "a@example.com", "", "p1")
	assert.True(t, apperr.Is(err, apperr.ErrValidation))

	_, err = env.discounts.Validate(context.Background(), "", "SPIN000000", "p1")
	assert.True(t, apperr.Is(err, apperr.ErrAuthentication))
}

func TestMarkUsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedDiscount(t, env, "a@example.com", "SPINMARK01", testNow.Add(time.Hour), false)

	err := env.discounts.MarkUsed(ctx, "intruder@example.com", "SPINMARK01")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	require.NoError(t, env.discounts.MarkUsed(ctx, "a@example.com", "SPINMARK01"))

	rec, err := env.store.GetDiscount(ctx, "SPINMARK01", "a@example.com")
	require.NoError(t, err)
	assert.True(t, rec.Used)
	require.NotNil(t, rec.UsedAt)
	assert.Equal(t, testNow, *rec.UsedAt)

	err = env.discounts.MarkUsed(ctx, "a@example.com", "SPINMARK01")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	assert.Equal(t, []string{models.EventTypeDiscountRedeemed}, env.events.Types())
}

func TestApply(t *testing.T) {
	assert.Equal(t, int64(10000), Apply(10000, 0))
	assert.Equal(t, int64(9500), Apply(10000, 5))
	assert.Equal(t, int64(5000), Apply(10000, 50))
	assert.Equal(t, int64(850), Apply(999, 15))
	assert.Equal(t, int64(0), Apply(10000, 100))
}
