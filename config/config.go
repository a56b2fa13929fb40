// Package config loads and validates the bot configuration file.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultCSVLogFile = "transactions.csv"
	defaultFiatAsset  = "ZEUR"
)

// Config validated bot settings, loaded once per run and never mutated.
type Config struct {
	Kraken        KrakenConfig
	Coins         []CoinEntry
	Notifications Notifications
	CSVLogFile    string
	// FiatAsset balance key used for the fiat budget, ZEUR by default.
	FiatAsset string
	// MaxRetries bounded retry count for retryable exchange errors.
	// Zero means a single attempt.
	MaxRetries int
}

// KrakenConfig API credential pair.
type KrakenConfig struct {
	APIKey     string
	PrivateKey string
}

// CoinEntry one configured purchase: a pair and its fiat budget.
// Entries are processed in configured order; duplicates are allowed
// and processed independently.
type CoinEntry struct {
	Pair   string
	Amount decimal.Decimal
}

// Notifications optional delivery channels. A channel is enabled only
// when its block is present with all required fields.
type Notifications struct {
	Telegram *TelegramConfig
	Email    *EmailConfig
}

// TelegramConfig settings for the Telegram bot channel.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether the channel has everything it needs to send.
func (t *TelegramConfig) Enabled() bool {
	return t != nil && t.BotToken != "" && t.ChatID != ""
}

// EmailConfig settings for the SMTP channel.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	FromEmail  string
	ToEmail    string
	Username   string
	Password   string
}

// Enabled reports whether the channel has everything it needs to send.
func (e *EmailConfig) Enabled() bool {
	return e != nil && e.SMTPServer != "" && e.SMTPPort != 0 && e.FromEmail != "" && e.ToEmail != ""
}

// amountValue decodes a fiat amount from either a YAML scalar or a JSON
// number/string without going through floats.
type amountValue struct {
	decimal.Decimal
}

func (a *amountValue) UnmarshalYAML(value *yaml.Node) error {
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("incorrect amount %q: %w", value.Value, err)
	}
	a.Decimal = d
	return nil
}

type configTmp struct {
	Kraken struct {
		APIKey     string `yaml:"api_key" json:"api_key"`
		PrivateKey string `yaml:"private_key" json:"private_key"`
	} `yaml:"kraken" json:"kraken"`
	Coins []struct {
		Pair   string      `yaml:"pair" json:"pair"`
		Amount amountValue `yaml:"amount" json:"amount"`
	} `yaml:"coins" json:"coins"`
	Notifications struct {
		Telegram *struct {
			BotToken string `yaml:"bot_token" json:"bot_token"`
			ChatID   string `yaml:"chat_id" json:"chat_id"`
		} `yaml:"telegram" json:"telegram"`
		Email *struct {
			SMTPServer string `yaml:"smtp_server" json:"smtp_server"`
			SMTPPort   int    `yaml:"smtp_port" json:"smtp_port"`
			FromEmail  string `yaml:"from_email" json:"from_email"`
			ToEmail    string `yaml:"to_email" json:"to_email"`
			Username   string `yaml:"username" json:"username"`
			Password   string `yaml:"password" json:"password"`
		} `yaml:"email" json:"email"`
	} `yaml:"notifications" json:"notifications"`
	CSVLogFile string `yaml:"csv_log_file" json:"csv_log_file"`
	FiatAsset  string `yaml:"fiat_asset" json:"fiat_asset"`
	MaxRetries int    `yaml:"max_retries" json:"max_retries"`
}

// Get reads the config path from the --config flag and loads it.
func Get() (Config, error) {
	path := flag.String("config", "config.json", "path to yaml or json config")
	flag.Parse()

	return Load(*path)
}

// Load parses and validates the configuration file at path. The format is
// chosen by extension: .yaml/.yml is YAML, anything else is JSON (the
// original deployment used config.json).
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(f, &tmp); err != nil {
			return Config{}, fmt.Errorf("failed to parse json config %s: %w", path, err)
		}
	}

	return validate(tmp)
}

func validate(tmp configTmp) (Config, error) {
	if tmp.Kraken.APIKey == "" || tmp.Kraken.PrivateKey == "" {
		return Config{}, fmt.Errorf("'kraken.api_key' and 'kraken.private_key' are required")
	}
	if len(tmp.Coins) == 0 {
		return Config{}, fmt.Errorf("at least one entry in 'coins' is required")
	}
	if tmp.MaxRetries < 0 {
		return Config{}, fmt.Errorf("'max_retries' must not be negative, got %d", tmp.MaxRetries)
	}

	cfg := Config{
		Kraken: KrakenConfig{
			APIKey:     tmp.Kraken.APIKey,
			PrivateKey: tmp.Kraken.PrivateKey,
		},
		CSVLogFile: tmp.CSVLogFile,
		FiatAsset:  tmp.FiatAsset,
		MaxRetries: tmp.MaxRetries,
	}
	if cfg.CSVLogFile == "" {
		cfg.CSVLogFile = defaultCSVLogFile
	}
	if cfg.FiatAsset == "" {
		cfg.FiatAsset = defaultFiatAsset
	}

	for _, c := range tmp.Coins {
		if c.Pair == "" {
			return Config{}, fmt.Errorf("incorrect 'coins' entry: 'pair' is required")
		}
		// A non-positive amount is kept on purpose: it fails that entry
		// at planning time instead of aborting the whole run.
		cfg.Coins = append(cfg.Coins, CoinEntry{Pair: c.Pair, Amount: c.Amount.Decimal})
	}

	if t := tmp.Notifications.Telegram; t != nil {
		cfg.Notifications.Telegram = &TelegramConfig{BotToken: t.BotToken, ChatID: t.ChatID}
	}
	if e := tmp.Notifications.Email; e != nil {
		cfg.Notifications.Email = &EmailConfig{
			SMTPServer: e.SMTPServer,
			SMTPPort:   e.SMTPPort,
			FromEmail:  e.FromEmail,
			ToEmail:    e.ToEmail,
			Username:   e.Username,
			Password:   e.Password,
		}
	}

	return cfg, nil
}
