// Command krakendca executes one dollar-cost-averaging run against Kraken:
// it fetches the EUR balance, places a market buy for every configured coin,
// journals each attempt to the CSV logs and notifies the operator.
//
// It is meant to be invoked periodically by an external scheduler (cron);
// there is no loop or timer inside.
//
// Usage:
//
//	krakendca --config config.json
//	krakendca --config config.yaml
//
// The exit status is zero only when every configured coin was purchased.
package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"krakendca/config"
	"krakendca/internal"
	"krakendca/internal/clients"
	"krakendca/internal/services/journal"
	"krakendca/internal/services/notifier"
	"krakendca/internal/services/pricer"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	client, err := clients.NewKrakenClient(cfg.Kraken.APIKey, cfg.Kraken.PrivateKey)
	if err != nil {
		logger.Fatal("failed to create kraken client", zap.Error(err))
	}

	channels := notifier.ChannelsFromConfig(cfg.Notifications)
	bot := internal.NewPurchaseBot(
		cfg,
		client,
		pricer.NewKrakenPricer(client),
		journal.New(cfg.CSVLogFile),
		notifier.NewFanout(logger, channels...),
		logger,
	)

	report, err := bot.Run(context.Background())
	if err != nil {
		logger.Fatal("run aborted", zap.Error(err))
	}

	if !report.AllSucceeded() {
		logger.Warn("run completed with failures", zap.Int("failed", report.Failed))
		logger.Sync()
		os.Exit(1)
	}
}
