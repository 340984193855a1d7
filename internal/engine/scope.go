package engine

import "github.com/PawanKGupta/modular-trade-agent-sub007/internal/broker"

// FilterTracked restricts broker holdings to symbols inside the tracking
// scope. Downstream automation (sell-order generation, exit evaluation) must
// only ever see the filtered set: positions held outside the engine's scope
// are visible for reporting but are never auto-traded.
func FilterTracked(holdings []broker.Holding, isTracked func(symbol string) bool) []broker.Holding {
	tracked := make([]broker.Holding, 0, len(holdings))
	for _, h := range holdings {
		if isTracked(h.Symbol) {
			tracked = append(tracked, h)
		}
	}
	return tracked
}
