package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/models"
)

func TestFileStoreSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.PutTracked(&models.TrackedSymbol{
		Symbol:          "RELIANCE",
		TrackingID:      "track-1",
		TrackedQuantity: 10,
		LastUpdatedAt:   time.Now(),
	}))
	require.NoError(t, fs.PutPending(&models.PendingOrder{
		OrderID:           "ORD1",
		Symbol:            "RELIANCE",
		Side:              models.SideBuy,
		RequestedQuantity: 10,
		Status:            models.StatusSubmitted,
		PlacedAt:          time.Now(),
	}))
	require.NoError(t, fs.AppendHistory(&models.TradeHistoryEntry{
		Symbol:        "TCS",
		Side:          models.SideSell,
		Quantity:      5,
		OrderID:       "ORD0",
		ExecutedAt:    time.Now(),
		OutcomeReason: models.OutcomeExecuted,
	}))

	// A fresh store over the same directory sees the persisted records,
	// as after a process restart.
	reloaded, err := NewFileStore(dir)
	require.NoError(t, err)

	ts, err := reloaded.GetTracked("RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, "track-1", ts.TrackingID)
	assert.Equal(t, int64(10), ts.TrackedQuantity)

	po, err := reloaded.GetPending("ORD1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, po.Status)

	entry, err := reloaded.FindHistoryByOrderID("ORD0")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeExecuted, entry.OutcomeReason)
}

func TestFileStoreDelete(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.PutTracked(&models.TrackedSymbol{Symbol: "RELIANCE", TrackingID: "track-1", TrackedQuantity: 10}))
	require.NoError(t, fs.DeleteTracked("RELIANCE"))

	_, err = fs.GetTracked("RELIANCE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreHistoryQueries(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	require.NoError(t, fs.AppendHistory(&models.TradeHistoryEntry{Symbol: "TCS", OrderID: "A", ExecutedAt: old}))
	require.NoError(t, fs.AppendHistory(&models.TradeHistoryEntry{Symbol: "TCS", OrderID: "B", ExecutedAt: recent}))
	require.NoError(t, fs.AppendHistory(&models.TradeHistoryEntry{Symbol: "INFY", OrderID: "C", ExecutedAt: recent}))

	entries, err := fs.ListHistoryBySymbol("TCS", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "B", entries[0].OrderID)
}
