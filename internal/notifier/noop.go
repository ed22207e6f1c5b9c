package notifier

import (
	"context"

	"CharityFund/internal/model"
)

// Noop is used when Telegram is not configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) NotifyFunded(context.Context, []model.Project) {}

func (Noop) SendWithRetry(context.Context, string, int) error { return nil }

// StartPolling blocks until ctx is cancelled.
func (Noop) StartPolling(ctx context.Context, _ CommandHandler) {
	<-ctx.Done()
}
