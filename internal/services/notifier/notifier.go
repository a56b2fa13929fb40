// Package notifier delivers purchase outcomes to the operator.
package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"krakendca/config"
	"krakendca/internal/domain"
)

// Channel a single delivery mechanism. Implementations must be independent:
// a Send failure is reported to the caller and nowhere else.
type Channel interface {
	Name() string
	Send(ctx context.Context, rec domain.TransactionRecord) error
}

// Fanout attempts delivery on every channel. A failing channel is logged and
// skipped; it never suppresses the others and never affects the run outcome.
type Fanout struct {
	channels []Channel
	l        *zap.Logger
}

func NewFanout(l *zap.Logger, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, l: l}
}

// Notify sends the record through every channel.
func (f *Fanout) Notify(ctx context.Context, rec domain.TransactionRecord) {
	for _, ch := range f.channels {
		if err := ch.Send(ctx, rec); err != nil {
			f.l.Error("notification delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("pair", rec.Pair),
				zap.Error(err))
			continue
		}
		f.l.Debug("notification delivered",
			zap.String("channel", ch.Name()),
			zap.String("pair", rec.Pair))
	}
}

// ChannelsFromConfig builds the enabled channels. A channel missing required
// fields is simply absent, never invoked.
func ChannelsFromConfig(n config.Notifications) []Channel {
	var channels []Channel
	if n.Telegram.Enabled() {
		channels = append(channels, NewTelegram(n.Telegram.BotToken, n.Telegram.ChatID))
	}
	if n.Email.Enabled() {
		channels = append(channels, NewEmail(*n.Email))
	}
	return channels
}

// Message renders the operator-facing text for a purchase outcome.
func Message(rec domain.TransactionRecord) string {
	if rec.Failed() {
		return fmt.Sprintf("DCA purchase failed for %s: %s", rec.Pair, rec.ErrDetail)
	}
	return fmt.Sprintf("DCA purchase: bought %s %s at %s EUR for %s EUR (order %s)",
		rec.Volume.String(), rec.Pair, rec.Price.String(), rec.EuroAmount.String(), rec.OrderID)
}

func subject(rec domain.TransactionRecord) string {
	if rec.Failed() {
		return "DCA purchase failed: " + rec.Pair
	}
	return "DCA purchase succeeded: " + rec.Pair
}
