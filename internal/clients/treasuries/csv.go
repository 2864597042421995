package treasuries

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// CSVSource reads a bitcointreasuries.net CSV export. Columns are
// rank, country flag, "Name + TICKER", "₿holdings", ...
type CSVSource struct {
	path   string
	logger *common.Logger
}

// NewCSVSource creates a source reading the export at path.
func NewCSVSource(path string, logger *common.Logger) *CSVSource {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &CSVSource{path: path, logger: logger}
}

// FetchCompanies reads the file on every call so a replaced export is picked
// up on the next refresh.
func (s *CSVSource) FetchCompanies(ctx context.Context) ([]models.ScrapedCompany, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open treasuries csv: %w", err)
	}
	defer f.Close()

	companies, skipped, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse treasuries csv %s: %w", s.path, err)
	}

	s.logger.Info().
		Str("path", s.path).
		Int("companies", len(companies)).
		Int("skipped", skipped).
		Msg("Parsed treasuries CSV")

	return companies, nil
}

var (
	holdingsRe = regexp.MustCompile(`₿\s*([\d,]*\.?\d*)`)
	tickerRe   = regexp.MustCompile(`([A-Z]{2,8}(?:\.[A-Z]{1,3})?)$`)
	suffixRe   = regexp.MustCompile(`(?i),?\s*(Inc\.?|Corp\.?|Ltd\.?|LLC|PLC|SE|AG|AB|AS|Group|Holdings?)$`)
)

// ParseCSV parses an export, skipping the header and any row without a
// ticker or with non-positive holdings. It returns the number of data rows
// skipped.
func ParseCSV(r io.Reader) ([]models.ScrapedCompany, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		companies []models.ScrapedCompany
		skipped   int
		header    = true
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if header {
			header = false
			continue
		}
		if isBlank(record) {
			continue
		}

		c, ok := parseRecord(record)
		if !ok {
			skipped++
			continue
		}
		companies = append(companies, c)
	}
	return companies, skipped, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string) (models.ScrapedCompany, bool) {
	if len(record) < 4 {
		return models.ScrapedCompany{}, false
	}
	flag := strings.TrimSpace(record[1])
	nameAndTicker := strings.TrimSpace(record[2])

	m := holdingsRe.FindStringSubmatch(record[3])
	if m == nil {
		return models.ScrapedCompany{}, false
	}
	holdings, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || holdings <= 0 {
		return models.ScrapedCompany{}, false
	}

	tm := tickerRe.FindStringSubmatch(nameAndTicker)
	if tm == nil {
		return models.ScrapedCompany{}, false
	}
	ticker := tm[1]
	name := strings.TrimSpace(strings.TrimSuffix(nameAndTicker, ticker))
	name = suffixRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(strings.TrimSuffix(name, ","))
	if name == "" {
		name = ticker
	}

	country := countryFromFlag(flag)
	return models.ScrapedCompany{
		Name:        name,
		Ticker:      ticker,
		BTCHoldings: holdings,
		Country:     country,
		Exchange:    GuessExchange(ticker, country),
	}, true
}

var flagCountries = map[string]string{
	"🇺🇸": "US", "🇨🇦": "CA", "🇯🇵": "JP", "🇩🇪": "DE", "🇬🇧": "GB",
	"🇫🇷": "FR", "🇨🇳": "CN", "🇭🇰": "HK", "🇸🇬": "SG", "🇦🇺": "AU",
	"🇰🇷": "KR", "🇳🇴": "NO", "🇸🇪": "SE", "🇧🇷": "BR", "🇦🇷": "AR",
	"🇲🇹": "MT", "🇹🇭": "TH", "🇹🇷": "TR", "🇰🇾": "KY", "🇯🇪": "JE",
	"🇮🇹": "IT", "🇧🇭": "BH", "🇦🇪": "AE", "🇬🇮": "GI", "🇪🇸": "ES",
	"🇿🇦": "ZA", "🇮🇳": "IN",
}

func countryFromFlag(flag string) string {
	if c, ok := flagCountries[flag]; ok {
		return c
	}
	return "US"
}

// exchangeSuffixes maps Yahoo ticker suffixes to exchanges.
var exchangeSuffixes = map[string]string{
	".T": "TSE", ".HK": "HKEX", ".TO": "TSX", ".V": "TSXV", ".AX": "ASX",
	".L": "LSE", ".PA": "Euronext", ".DE": "XETRA", ".OL": "OSE", ".ST": "OMX",
	".BK": "SET", ".KQ": "KOSDAQ", ".KS": "KRX", ".MI": "Borsa Italiana",
	".SA": "B3", ".JO": "JSE", ".IS": "BIST", ".AD": "ADX", ".BH": "BHB",
	".BO": "BSE", ".MC": "BME", ".AQ": "NEX", ".CN": "CNQ", ".NE": "NEO",
	".F": "Frankfurt", ".DU": "Dusseldorf", ".NGM": "NGM",
}

var countryExchanges = map[string]string{
	"US": "NASDAQ", "CA": "TSX", "JP": "TSE", "GB": "LSE", "DE": "XETRA",
	"FR": "Euronext", "AU": "ASX", "HK": "HKEX", "SG": "SGX", "KR": "KRX",
	"NO": "OSE", "SE": "OMX", "BR": "B3", "CN": "SSE", "IN": "BSE",
	"ZA": "JSE", "TH": "SET", "TR": "BIST",
}

// GuessExchange infers a listing exchange from the ticker suffix, then the
// country, defaulting to NASDAQ.
func GuessExchange(ticker, country string) string {
	if i := strings.LastIndex(ticker, "."); i >= 0 {
		if ex, ok := exchangeSuffixes[strings.ToUpper(ticker[i:])]; ok {
			return ex
		}
	}
	if ex, ok := countryExchanges[country]; ok {
		return ex
	}
	return "NASDAQ"
}

var _ interfaces.HoldingsSource = (*CSVSource)(nil)
