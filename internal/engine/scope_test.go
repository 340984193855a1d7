package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/broker"
)

func TestFilterTracked(t *testing.T) {
	holdings := []broker.Holding{
		{Symbol: "RELIANCE", Quantity: 10},
		{Symbol: "TCS", Quantity: 5},
		{Symbol: "INFY", Quantity: 20},
	}
	tracked := map[string]bool{"RELIANCE": true, "INFY": true}
	isTracked := func(symbol string) bool { return tracked[symbol] }

	t.Run("KeepsOnlyTracked", func(t *testing.T) {
		got := FilterTracked(holdings, isTracked)

		assert.Len(t, got, 2)
		assert.Equal(t, "RELIANCE", got[0].Symbol)
		assert.Equal(t, "INFY", got[1].Symbol)
	})

	t.Run("NothingTracked", func(t *testing.T) {
		got := FilterTracked(holdings, func(string) bool { return false })
		assert.Empty(t, got)
	})

	t.Run("EmptyHoldings", func(t *testing.T) {
		got := FilterTracked(nil, isTracked)
		assert.Empty(t, got)
	})
}
