// Package clients implements the Kraken REST API client used by the bot.
package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"krakendca/internal/domain"
)

// DefaultBaseURL Kraken REST API endpoint.
const DefaultBaseURL = "https://api.kraken.com"

const requestTimeout = 30 * time.Second

// ExchangeError failure of a single exchange call. Retryable marks
// transient conditions (rate limiting, service unavailability, transport
// failures) that a bounded retry may resolve.
type ExchangeError struct {
	Op        string
	Message   string
	Retryable bool
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("kraken %s: %s", e.Op, e.Message)
}

// IsRetryable reports whether err is an exchange error marked transient.
func IsRetryable(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee) && ee.Retryable
}

// KrakenClient authenticated Kraken REST client. Safe for sequential use;
// the bot runs a single control-flow path, so no locking is needed.
type KrakenClient struct {
	apiKey  string
	secret  []byte
	baseURL string
	httpc   *http.Client
	nonce   func() string
}

// NewKrakenClient builds a client from the credential pair. The private key
// must be the base64-encoded secret as issued by Kraken.
func NewKrakenClient(apiKey, privateKey string) (*KrakenClient, error) {
	secret, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode kraken private key")
	}

	return &KrakenClient{
		apiKey:  apiKey,
		secret:  secret,
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		nonce: func() string {
			return strconv.FormatInt(time.Now().UnixMilli(), 10)
		},
	}, nil
}

// WithBaseURL points the client at another endpoint. Used by tests.
func (c *KrakenClient) WithBaseURL(u string) *KrakenClient {
	c.baseURL = u
	return c
}

// krakenResponse is the envelope every Kraken endpoint returns. A non-empty
// error array means the call failed even when the HTTP status is 200.
type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// FiatBalance returns the available balance for the given fiat asset key
// (ZEUR for euros). A missing key means a zero balance.
func (c *KrakenClient) FiatBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	raw, err := c.privateCall(ctx, "Balance", url.Values{})
	if err != nil {
		return decimal.Decimal{}, err
	}

	var balances map[string]decimal.Decimal
	if err := json.Unmarshal(raw, &balances); err != nil {
		return decimal.Decimal{}, &ExchangeError{Op: "Balance", Message: err.Error(), Retryable: true}
	}

	return balances[asset], nil
}

// Price returns the last trade price for the pair via the public Ticker
// endpoint. The result is keyed by the canonical pair name, which may differ
// from the requested one, so the single entry is taken as is.
func (c *KrakenClient) Price(ctx context.Context, pair string) (domain.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/0/public/Ticker?pair=%s", c.baseURL, url.QueryEscape(pair))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PriceQuote{}, errors.Wrap(err, "failed to build ticker request")
	}

	raw, err := c.do("Ticker", req)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	var tickers map[string]struct {
		Close []string `json:"c"`
	}
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return domain.PriceQuote{}, &ExchangeError{Op: "Ticker", Message: err.Error(), Retryable: true}
	}

	for _, t := range tickers {
		if len(t.Close) == 0 {
			break
		}
		price, err := decimal.NewFromString(t.Close[0])
		if err != nil {
			return domain.PriceQuote{}, &ExchangeError{Op: "Ticker", Message: fmt.Sprintf("unparseable price %q for %s", t.Close[0], pair)}
		}
		return domain.PriceQuote{Pair: pair, Price: price, Timestamp: time.Now().UTC()}, nil
	}

	return domain.PriceQuote{}, &ExchangeError{Op: "Ticker", Message: fmt.Sprintf("empty ticker result for %s", pair)}
}

// MarketBuy places a market buy order for the given volume of the base
// asset. The volume must already be quantized by the planner; it is sent
// with 8 decimal places as Kraken expects.
func (c *KrakenClient) MarketBuy(ctx context.Context, pair string, volume decimal.Decimal) (domain.OrderReceipt, error) {
	clientOrderID := uuid.NewString()

	data := url.Values{}
	data.Set("ordertype", "market")
	data.Set("type", "buy")
	data.Set("volume", volume.StringFixed(8))
	data.Set("pair", pair)
	data.Set("cl_ord_id", clientOrderID)

	raw, err := c.privateCall(ctx, "AddOrder", data)
	if err != nil {
		return domain.OrderReceipt{}, err
	}

	var result struct {
		TxID  []string `json:"txid"`
		Descr struct {
			Order string `json:"order"`
		} `json:"descr"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.OrderReceipt{}, &ExchangeError{Op: "AddOrder", Message: err.Error(), Retryable: true}
	}
	if len(result.TxID) == 0 {
		return domain.OrderReceipt{}, &ExchangeError{Op: "AddOrder", Message: "no transaction id in order response"}
	}

	return domain.OrderReceipt{
		TxID:          result.TxID[0],
		ClientOrderID: clientOrderID,
		Description:   result.Descr.Order,
	}, nil
}

// privateCall signs and posts a request to a private endpoint.
func (c *KrakenClient) privateCall(ctx context.Context, op string, data url.Values) (json.RawMessage, error) {
	urlpath := "/0/private/" + op
	data.Set("nonce", c.nonce())
	body := data.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+urlpath, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s request", op)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", c.sign(urlpath, data.Get("nonce"), body))

	return c.do(op, req)
}

// sign computes API-Sign: base64(HMAC-SHA512(path + SHA256(nonce + body),
// base64-decoded secret)).
func (c *KrakenClient) sign(urlpath, nonce, body string) string {
	digest := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, c.secret)
	mac.Write([]byte(urlpath))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *KrakenClient) do(op string, req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &ExchangeError{Op: op, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Op: op, Message: err.Error(), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Op:        op,
			Message:   fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))),
			Retryable: resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	var envelope krakenResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &ExchangeError{Op: op, Message: err.Error(), Retryable: true}
	}
	if len(envelope.Error) > 0 {
		return nil, &ExchangeError{
			Op:        op,
			Message:   strings.Join(envelope.Error, ", "),
			Retryable: retryableKrakenError(envelope.Error),
		}
	}

	return envelope.Result, nil
}

// retryableKrakenError classifies Kraken error codes. Rate limiting and
// service-side conditions are transient; everything else (bad auth, unknown
// pair, invalid arguments) is not.
func retryableKrakenError(errs []string) bool {
	for _, e := range errs {
		switch {
		case strings.HasPrefix(e, "EAPI:Rate limit"),
			strings.HasPrefix(e, "EService:"),
			strings.HasPrefix(e, "EGeneral:Temporary"):
			return true
		}
	}
	return false
}
