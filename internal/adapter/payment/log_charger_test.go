package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/shopcore/internal/core/domain"
)

func TestLogCharger_Charge(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	charger := NewLogCharger(zap.New(core))

	order := domain.Order{
		ID:       1,
		Customer: domain.CustomerRef{ID: 2, Username: "sam"},
		Total:    domain.MoneyFromFloat(40),
	}
	require.NoError(t, charger.Charge(context.Background(), order))

	entries := logs.FilterMessage("charged customer").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "40.00", fields["amount"])
	assert.Equal(t, "sam", fields["username"])
	assert.EqualValues(t, 1, fields["order_id"])
}
