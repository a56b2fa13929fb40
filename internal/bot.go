package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krakendca/config"
	"krakendca/internal/clients"
	"krakendca/internal/domain"
	"krakendca/internal/services/planner"
	"krakendca/pkg/retrier"
)

// Exchange authenticated exchange operations the bot needs.
type Exchange interface {
	FiatBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	MarketBuy(ctx context.Context, pair string, volume decimal.Decimal) (domain.OrderReceipt, error)
}

// Pricer serves fresh price quotes.
type Pricer interface {
	GetPrice(ctx context.Context, pair string) (domain.PriceQuote, error)
}

// Journal persists transaction records.
type Journal interface {
	Append(rec domain.TransactionRecord) error
}

// Notifier delivers purchase outcomes to the operator.
type Notifier interface {
	Notify(ctx context.Context, rec domain.TransactionRecord)
}

// RunReport aggregated outcome of one invocation.
type RunReport struct {
	Records []domain.TransactionRecord
	Failed  int
}

// AllSucceeded reports whether every configured coin was purchased.
func (r *RunReport) AllSucceeded() bool {
	return r.Failed == 0
}

// PurchaseBot executes one DCA run: fetch the fiat balance once, then walk
// the configured coins in order, sizing and placing a market buy for each.
// The balance is threaded through the loop as a value and decremented only
// on confirmed success, so one run can never commit more fiat than it saw
// at the start.
type PurchaseBot struct {
	cfg      config.Config
	exchange Exchange
	pricer   Pricer
	journal  Journal
	notifier Notifier
	retrier  *retrier.Retrier
	logger   *zap.Logger
	now      func() time.Time
}

// NewPurchaseBot creates a bot instance.
func NewPurchaseBot(cfg config.Config, exchange Exchange, pricer Pricer, journal Journal, notifier Notifier, logger *zap.Logger) *PurchaseBot {
	return &PurchaseBot{
		cfg:      cfg,
		exchange: exchange,
		pricer:   pricer,
		journal:  journal,
		notifier: notifier,
		retrier:  retrier.New(cfg.MaxRetries),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the purchase loop. It returns an error only for fatal
// conditions (no balance could be fetched); per-coin failures are recorded,
// notified, and reflected in the report instead.
func (b *PurchaseBot) Run(ctx context.Context) (RunReport, error) {
	balance, err := retrier.DoWithData(b.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return b.exchange.FiatBalance(ctx, b.cfg.FiatAsset)
	}, clients.IsRetryable)
	if err != nil {
		return RunReport{}, errors.Wrap(err, "failed to fetch fiat balance")
	}

	b.logger.Info("starting purchase run",
		zap.String("balance", balance.String()),
		zap.String("fiat_asset", b.cfg.FiatAsset),
		zap.Int("coins", len(b.cfg.Coins)))

	var report RunReport
	for _, coin := range b.cfg.Coins {
		rec, remaining, procErr := b.processCoin(ctx, coin, balance)
		balance = remaining

		if rec.Failed() {
			report.Failed++
			if planner.IsPlanningError(procErr) {
				b.logger.Warn("purchase skipped by planner",
					zap.String("pair", rec.Pair),
					zap.String("reason", rec.ErrDetail))
			} else {
				b.logger.Warn("purchase failed",
					zap.String("pair", rec.Pair),
					zap.String("error", rec.ErrDetail))
			}
		} else {
			b.logger.Info("purchase completed",
				zap.String("pair", rec.Pair),
				zap.String("volume", rec.Volume.String()),
				zap.String("price", rec.Price.String()),
				zap.String("order_id", rec.OrderID),
				zap.String("remaining_balance", balance.String()))
		}

		if err := b.journal.Append(rec); err != nil {
			b.logger.Error("failed to journal transaction", zap.String("pair", rec.Pair), zap.Error(err))
		}
		b.notifier.Notify(ctx, rec)

		report.Records = append(report.Records, rec)
	}

	b.logger.Info("purchase run completed",
		zap.Int("succeeded", len(report.Records)-report.Failed),
		zap.Int("failed", report.Failed),
		zap.String("remaining_balance", balance.String()))

	return report, nil
}

// processCoin attempts one purchase and returns its record, the balance
// remaining after it and the failure cause, if any. Any failure keeps the
// balance untouched.
func (b *PurchaseBot) processCoin(ctx context.Context, coin config.CoinEntry, balance decimal.Decimal) (domain.TransactionRecord, decimal.Decimal, error) {
	quote, err := retrier.DoWithData(b.retrier, ctx, func(ctx context.Context) (domain.PriceQuote, error) {
		return b.pricer.GetPrice(ctx, coin.Pair)
	}, clients.IsRetryable)
	if err != nil {
		return b.failedRecord(coin, decimal.Decimal{}, decimal.Decimal{}, err), balance, err
	}

	order, err := planner.Plan(coin.Pair, coin.Amount, balance, quote.Price)
	if err != nil {
		return b.failedRecord(coin, quote.Price, decimal.Decimal{}, err), balance, err
	}

	receipt, err := retrier.DoWithData(b.retrier, ctx, func(ctx context.Context) (domain.OrderReceipt, error) {
		return b.exchange.MarketBuy(ctx, order.Pair, order.Volume)
	}, clients.IsRetryable)
	if err != nil {
		return b.failedRecord(coin, quote.Price, order.Volume, err), balance, err
	}

	rec := domain.TransactionRecord{
		Timestamp:  b.now(),
		Pair:       coin.Pair,
		Price:      quote.Price,
		Volume:     order.Volume,
		EuroAmount: coin.Amount,
		OrderID:    receipt.TxID,
		Status:     domain.StatusSuccess,
	}

	return rec, balance.Sub(coin.Amount), nil
}

func (b *PurchaseBot) failedRecord(coin config.CoinEntry, price, volume decimal.Decimal, err error) domain.TransactionRecord {
	return domain.TransactionRecord{
		Timestamp:  b.now(),
		Pair:       coin.Pair,
		Price:      price,
		Volume:     volume,
		EuroAmount: coin.Amount,
		Status:     domain.StatusFailed,
		ErrDetail:  err.Error(),
	}
}
