package alert

import (
	"context"

	"spread_trader/internal/core"
)

// Notifier adapts the alert manager to the engine's notification sink
type Notifier struct {
	manager *AlertManager
}

// NewNotifier creates the engine-facing notifier
func NewNotifier(manager *AlertManager) *Notifier {
	return &Notifier{manager: manager}
}

// NotifyEntry announces a freshly opened position
func (n *Notifier) NotifyEntry(e core.EntryNotification) {
	n.manager.Alert(context.Background(),
		"Position opened",
		e.Combination.String(),
		Info,
		map[string]string{
			"entry_spread":      e.EntrySpread.String(),
			"exit_target":       e.ExitTarget.String(),
			"long_volume":       e.LongVolume.String(),
			"short_volume":      e.ShortVolume.String(),
			"long_limit_price":  e.LongLimitPrice.String(),
			"short_limit_price": e.ShortLimitPrice.String(),
		})
}

// NotifyExit announces a closed position with its balance change
func (n *Notifier) NotifyExit(e core.ExitNotification) {
	n.manager.Alert(context.Background(),
		"Position closed",
		e.Combination.String(),
		Info,
		map[string]string{
			"exit_spread":       e.ExitSpread.String(),
			"long_volume":       e.LongVolume.String(),
			"short_volume":      e.ShortVolume.String(),
			"long_limit_price":  e.LongLimitPrice.String(),
			"short_limit_price": e.ShortLimitPrice.String(),
			"entry_balance":     e.EntryBalance.String(),
			"updated_balance":   e.UpdatedBalance.String(),
		})
}
