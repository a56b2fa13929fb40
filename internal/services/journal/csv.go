// Package journal appends transaction records to the CSV logs.
package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"krakendca/internal/domain"
)

// taxSuffix is inserted before the extension of the primary log path to
// derive the tax-report file path.
const taxSuffix = "_tax"

var primaryHeader = []string{"timestamp", "pair", "price", "volume", "euro_amount", "order_id"}

// taxHeader is the import schema of the external tax tool. The column set is
// a compatibility contract and must not be altered.
var taxHeader = []string{
	"Date",
	"Sent Amount", "Sent Currency",
	"Received Amount", "Received Currency",
	"Fee Amount", "Fee Currency",
	"Net Worth Amount", "Net Worth Currency",
	"Label", "Description", "TxHash",
}

// CSVJournal appends one row per purchase attempt to the primary log and to
// the derived tax-report log. Files are created with a header on first write
// and only ever appended to afterwards. A single writer per path is assumed;
// concurrent invocations against the same path are an operational hazard
// this journal does not coordinate.
type CSVJournal struct {
	path    string
	taxPath string
}

func New(path string) *CSVJournal {
	return &CSVJournal{path: path, taxPath: TaxPath(path)}
}

// TaxPath derives the tax-report path from the primary log path by inserting
// the suffix before the extension: transactions.csv -> transactions_tax.csv.
func TaxPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + taxSuffix + ext
}

// Append writes the record to both logs.
func (j *CSVJournal) Append(rec domain.TransactionRecord) error {
	if err := appendRow(j.path, primaryHeader, primaryRow(rec)); err != nil {
		return errors.Wrapf(err, "failed to append to %s", j.path)
	}
	if err := appendRow(j.taxPath, taxHeader, taxRow(rec)); err != nil {
		return errors.Wrapf(err, "failed to append to %s", j.taxPath)
	}
	return nil
}

func appendRow(path string, header, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()

	return w.Error()
}

func primaryRow(rec domain.TransactionRecord) []string {
	return []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Pair,
		rec.Price.String(),
		rec.Volume.String(),
		rec.EuroAmount.String(),
		rec.OrderID,
	}
}

func taxRow(rec domain.TransactionRecord) []string {
	date := rec.Timestamp.UTC().Format("2006-01-02 15:04 UTC")

	if rec.Failed() {
		return []string{
			date,
			"", "", "", "", "", "", "", "",
			"",
			"FAILED " + rec.Pair + ": " + rec.ErrDetail,
			"",
		}
	}

	return []string{
		date,
		rec.EuroAmount.String(), "EUR",
		rec.Volume.String(), baseAsset(rec.Pair),
		"", "",
		rec.EuroAmount.String(), "EUR",
		"",
		"DCA buy " + rec.Pair,
		rec.OrderID,
	}
}

// Kraken legacy X-prefixed asset codes mapped to the tickers the tax tool
// expects. Codes not listed here pass through unchanged, which is correct
// for modern pairs (SOLEUR, ADAEUR, ...) that already use plain tickers.
var assetAliases = map[string]string{
	"XXBT": "BTC",
	"XBT":  "BTC",
	"XETH": "ETH",
	"XXDG": "DOGE",
	"XDG":  "DOGE",
	"XXRP": "XRP",
	"XXLM": "XLM",
	"XXMR": "XMR",
	"XLTC": "LTC",
	"XZEC": "ZEC",
	"XETC": "ETC",
	"XREP": "REP",
	"XMLN": "MLN",
}

// baseAsset extracts the base asset ticker from a Kraken pair code,
// e.g. XXBTZEUR -> BTC, ETHEUR -> ETH.
func baseAsset(pair string) string {
	base := strings.TrimSuffix(pair, "ZEUR")
	if base == pair {
		base = strings.TrimSuffix(pair, "EUR")
	}
	if alias, ok := assetAliases[base]; ok {
		return alias
	}
	return base
}
