// Package pricer fetches current market prices for trading pairs.
package pricer

import (
	"context"
	"fmt"

	"krakendca/internal/domain"
)

type krakenAPI interface {
	Price(ctx context.Context, pair string) (domain.PriceQuote, error)
}

// KrakenPricer serves fresh price quotes from the Kraken ticker. Quotes are
// never cached; every call hits the exchange.
type KrakenPricer struct {
	client krakenAPI
}

func NewKrakenPricer(client krakenAPI) *KrakenPricer {
	return &KrakenPricer{client: client}
}

// GetPrice returns the last trade price for the pair.
func (p *KrakenPricer) GetPrice(ctx context.Context, pair string) (domain.PriceQuote, error) {
	quote, err := p.client.Price(ctx, pair)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	if !quote.Price.IsPositive() {
		return domain.PriceQuote{}, fmt.Errorf("kraken returned non-positive price %s for %s", quote.Price.String(), pair)
	}

	return quote, nil
}
