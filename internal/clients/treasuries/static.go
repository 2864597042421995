// Package treasuries provides the lists of public Bitcoin treasury holders
// that feed the holdings refresh.
package treasuries

import (
	"context"

	"github.com/bobmcallan/treasury/internal/interfaces"
	"github.com/bobmcallan/treasury/internal/models"
)

// StaticSource returns a curated list of treasury holders.
type StaticSource struct{}

// NewStaticSource creates a StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func holder(name, ticker string, btc float64, country, exchange string, sharesM float64) models.ScrapedCompany {
	return models.ScrapedCompany{
		Name:                      name,
		Ticker:                    ticker,
		BTCHoldings:               btc,
		Country:                   country,
		Exchange:                  exchange,
		SharesOutstandingMillions: models.Ptr(sharesM),
	}
}

// staticHolders is ordered ETFs first, then operating companies.
var staticHolders = []models.ScrapedCompany{
	holder("IBIT - iShares Bitcoin Trust", "IBIT", 1142370, "US", "NASDAQ", 1149),
	holder("FBTC - Fidelity Wise Origin Bitcoin Fund", "FBTC", 210778, "US", "NYSE", 221),
	holder("ARKB - ARK 21Shares Bitcoin ETF", "ARKB", 56454, "US", "NYSE", 155),
	holder("BITB - Bitwise Bitcoin ETF", "BITB", 43507, "US", "NYSE", 73),
	holder("BTC - VanEck Bitcoin Trust", "HODL", 12704, "US", "NYSE", 32),
	holder("BRRR - Valkyrie Bitcoin Fund", "BRRR", 4047, "US", "NASDAQ", 13),
	holder("BTCO - Invesco Galaxy Bitcoin ETF", "BTCO", 3247, "US", "NYSE", 30),
	holder("EZBC - Franklin Bitcoin ETF", "EZBC", 2894, "US", "NYSE", 46),
	holder("DEFI - Hashdex Bitcoin ETF", "DEFI", 1281, "US", "NYSE", 10),

	holder("MicroStrategy", "MSTR", 444262, "US", "NASDAQ", 19.5),
	holder("Marathon Digital Holdings", "MARA", 34794, "US", "NASDAQ", 240),
	holder("Riot Platforms", "RIOT", 17429, "US", "NASDAQ", 170),
	holder("Galaxy Digital Holdings", "GLXY.TO", 15449, "CA", "TSX", 32),
	holder("Tesla", "TSLA", 9720, "US", "NASDAQ", 3180),
	holder("Hut 8 Mining", "HUT", 9366, "CA", "NASDAQ", 90),
	holder("Coinbase Global", "COIN", 9181, "US", "NASDAQ", 230),
	holder("CleanSpark", "CLSK", 8445, "US", "NASDAQ", 220),
	holder("Block", "SQ", 8027, "US", "NYSE", 580),
	holder("Metaplanet", "3350.T", 1761, "JP", "TSE", 115),
	holder("Bitfarms", "BITF", 1103, "CA", "NASDAQ", 440),
	holder("Semler Scientific", "SMLR", 1058, "US", "NASDAQ", 7.8),
	holder("Core Scientific", "CORZ", 890, "US", "NASDAQ", 250),
	holder("Cipher Mining", "CIFR", 729, "US", "NASDAQ", 245),
	holder("LQwD Technologies", "LQWD.V", 318, "CA", "CSE", 87),
	holder("KULR Technology Group", "KULR", 217, "US", "NYSE", 26),
	holder("Genius Group", "GNS", 110, "SG", "NYSE", 32),
	holder("Acurx Pharmaceuticals", "ACXP", 46, "US", "NASDAQ", 97),
	holder("Adopter Digital Health", "ADOP", 22, "US", "OTC", 45),
	holder("Rumble", "RUM", 20, "US", "NASDAQ", 658),
}

// FetchCompanies returns a copy of the curated list.
func (s *StaticSource) FetchCompanies(ctx context.Context) ([]models.ScrapedCompany, error) {
	out := make([]models.ScrapedCompany, len(staticHolders))
	copy(out, staticHolders)
	return out, nil
}

var _ interfaces.HoldingsSource = (*StaticSource)(nil)
