package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"krakendca/internal/domain"
)

// DefaultTelegramBaseURL Telegram Bot API endpoint.
const DefaultTelegramBaseURL = "https://api.telegram.org"

const telegramTimeout = 10 * time.Second

// Telegram delivers messages through the Bot API sendMessage method, one
// HTTP call per event.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	httpc   *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: DefaultTelegramBaseURL,
		httpc:   &http.Client{Timeout: telegramTimeout},
	}
}

// WithBaseURL points the channel at another endpoint. Used by tests.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = u
	return t
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts the rendered message to the configured chat.
func (t *Telegram) Send(ctx context.Context, rec domain.TransactionRecord) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", Message(rec))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build telegram request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "telegram request failed")
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "failed to decode telegram response")
	}
	if !result.OK {
		return errors.Errorf("telegram API rejected the message: %s", result.Description)
	}

	return nil
}
