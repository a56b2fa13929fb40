package internal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"krakendca/config"
	"krakendca/internal/clients"
	"krakendca/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeExchange struct {
	balance    decimal.Decimal
	balanceErr error
	buyErr     map[string]error
	buys       []domain.PurchaseOrder
}

func (f *fakeExchange) FiatBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Decimal{}, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeExchange) MarketBuy(_ context.Context, pair string, volume decimal.Decimal) (domain.OrderReceipt, error) {
	if err := f.buyErr[pair]; err != nil {
		return domain.OrderReceipt{}, err
	}
	f.buys = append(f.buys, domain.PurchaseOrder{Pair: pair, Volume: volume})
	return domain.OrderReceipt{TxID: "TX-" + pair}, nil
}

type fakePricer struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
}

func (f *fakePricer) GetPrice(_ context.Context, pair string) (domain.PriceQuote, error) {
	if err := f.errs[pair]; err != nil {
		return domain.PriceQuote{}, err
	}
	return domain.PriceQuote{Pair: pair, Price: f.prices[pair], Timestamp: time.Now()}, nil
}

type fakeJournal struct {
	records []domain.TransactionRecord
}

func (f *fakeJournal) Append(rec domain.TransactionRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeNotifier struct {
	events []domain.TransactionRecord
}

func (f *fakeNotifier) Notify(_ context.Context, rec domain.TransactionRecord) {
	f.events = append(f.events, rec)
}

func newTestBot(cfg config.Config, exchange Exchange, pricer Pricer) (*PurchaseBot, *fakeJournal, *fakeNotifier) {
	j := &fakeJournal{}
	n := &fakeNotifier{}
	return NewPurchaseBot(cfg, exchange, pricer, j, n, zap.NewNop()), j, n
}

func testConfig(coins ...config.CoinEntry) config.Config {
	return config.Config{
		Coins:      coins,
		FiatAsset:  "ZEUR",
		CSVLogFile: "transactions.csv",
	}
}

func TestRunAllCoinsSucceed(t *testing.T) {
	exchange := &fakeExchange{balance: d("200")}
	pricer := &fakePricer{prices: map[string]decimal.Decimal{
		"XXBTZEUR": d("40000"),
		"ETHEUR":   d("2000"),
	}}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("50")},
		config.CoinEntry{Pair: "ETHEUR", Amount: d("60")},
	)
	bot, j, n := newTestBot(cfg, exchange, pricer)

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.AllSucceeded())
	require.Len(t, report.Records, 2)
	require.Len(t, j.records, 2)
	require.Len(t, n.events, 2)

	require.Len(t, exchange.buys, 2)
	require.True(t, exchange.buys[0].Volume.Equal(d("0.00125")))
	require.True(t, exchange.buys[1].Volume.Equal(d("0.03")))
	require.Equal(t, "TX-XXBTZEUR", report.Records[0].OrderID)
}

func TestRunBalanceRunsOutMidRun(t *testing.T) {
	// 100 EUR: BTC for 50 succeeds leaving 50, ETH for 60 must be rejected.
	exchange := &fakeExchange{balance: d("100")}
	pricer := &fakePricer{prices: map[string]decimal.Decimal{
		"XXBTZEUR": d("40000"),
		"ETHEUR":   d("2000"),
	}}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("50")},
		config.CoinEntry{Pair: "ETHEUR", Amount: d("60")},
	)
	bot, j, _ := newTestBot(cfg, exchange, pricer)

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.AllSucceeded())
	require.Equal(t, 1, report.Failed)

	require.Len(t, exchange.buys, 1, "only BTC should be bought")
	require.Len(t, j.records, 2)
	require.Equal(t, domain.StatusSuccess, j.records[0].Status)
	require.Equal(t, domain.StatusFailed, j.records[1].Status)
	require.Contains(t, j.records[1].ErrDetail, "insufficient funds")
}

func TestRunPriceFetchFailureIsIsolated(t *testing.T) {
	exchange := &fakeExchange{balance: d("200")}
	pricer := &fakePricer{
		prices: map[string]decimal.Decimal{"ETHEUR": d("2000")},
		errs:   map[string]error{"XXBTZEUR": &clients.ExchangeError{Op: "Ticker", Message: "connection refused", Retryable: true}},
	}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("50")},
		config.CoinEntry{Pair: "ETHEUR", Amount: d("60")},
	)
	bot, j, n := newTestBot(cfg, exchange, pricer)

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)

	// The failing pair is recorded and notified, the next coin still runs.
	require.Len(t, j.records, 2)
	require.Contains(t, j.records[0].ErrDetail, "connection refused")
	require.Len(t, n.events, 2)
	require.Len(t, exchange.buys, 1)
	require.Equal(t, "ETHEUR", exchange.buys[0].Pair)
}

func TestRunOrderFailureKeepsBalance(t *testing.T) {
	exchange := &fakeExchange{
		balance: d("100"),
		buyErr:  map[string]error{"XXBTZEUR": &clients.ExchangeError{Op: "AddOrder", Message: "EOrder:Insufficient funds"}},
	}
	pricer := &fakePricer{prices: map[string]decimal.Decimal{
		"XXBTZEUR": d("40000"),
		"ETHEUR":   d("2000"),
	}}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("50")},
		config.CoinEntry{Pair: "ETHEUR", Amount: d("80")},
	)
	bot, j, _ := newTestBot(cfg, exchange, pricer)

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)

	// The failed BTC order must not consume budget: 80 EUR for ETH still fits.
	require.Len(t, exchange.buys, 1)
	require.Equal(t, "ETHEUR", exchange.buys[0].Pair)
	require.Equal(t, domain.StatusSuccess, j.records[1].Status)
}

func TestRunAbortsWhenBalanceFetchFails(t *testing.T) {
	exchange := &fakeExchange{balanceErr: &clients.ExchangeError{Op: "Balance", Message: "EAPI:Invalid key"}}
	pricer := &fakePricer{}

	cfg := testConfig(config.CoinEntry{Pair: "XXBTZEUR", Amount: d("50")})
	bot, j, n := newTestBot(cfg, exchange, pricer)

	_, err := bot.Run(context.Background())
	require.Error(t, err)
	require.Empty(t, j.records)
	require.Empty(t, n.events)
}

func TestRunNonPositiveAmountFailsOnlyThatEntry(t *testing.T) {
	exchange := &fakeExchange{balance: d("200")}
	pricer := &fakePricer{prices: map[string]decimal.Decimal{
		"XXBTZEUR": d("40000"),
		"ETHEUR":   d("2000"),
	}}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("0")},
		config.CoinEntry{Pair: "ETHEUR", Amount: d("60")},
	)
	bot, j, _ := newTestBot(cfg, exchange, pricer)

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Contains(t, j.records[0].ErrDetail, "must be positive")
	require.Equal(t, domain.StatusSuccess, j.records[1].Status)
}

func TestRunLogsPlannerSkipsDistinctly(t *testing.T) {
	exchange := &fakeExchange{balance: d("50")}
	pricer := &fakePricer{
		prices: map[string]decimal.Decimal{"ETHEUR": d("2000")},
		errs:   map[string]error{"XXBTZEUR": &clients.ExchangeError{Op: "Ticker", Message: "connection refused", Retryable: true}},
	}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("40")},
		config.CoinEntry{Pair: "ETHEUR", Amount: d("60")},
	)

	core, logs := observer.New(zap.WarnLevel)
	bot := NewPurchaseBot(cfg, exchange, pricer, &fakeJournal{}, &fakeNotifier{}, zap.New(core))

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Failed)

	// Exchange failures and planner rejections are distinguishable in the
	// run log: the price fetch failure is a real failure, the insufficient
	// funds rejection is a planner skip.
	require.Len(t, logs.FilterMessage("purchase failed").All(), 1)
	skips := logs.FilterMessage("purchase skipped by planner").All()
	require.Len(t, skips, 1)
	require.Equal(t, "ETHEUR", skips[0].ContextMap()["pair"])
}

func TestRunDuplicatePairsAreIndependent(t *testing.T) {
	exchange := &fakeExchange{balance: d("100")}
	pricer := &fakePricer{prices: map[string]decimal.Decimal{"XXBTZEUR": d("40000")}}

	cfg := testConfig(
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("60")},
		config.CoinEntry{Pair: "XXBTZEUR", Amount: d("60")},
	)
	bot, _, _ := newTestBot(cfg, exchange, pricer)

	report, err := bot.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed, "second duplicate must fail on remaining balance")
	require.Len(t, exchange.buys, 1)
}
