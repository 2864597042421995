package company

import "github.com/bobmcallan/treasury/internal/models"

func seed(name, ticker, exchange, country string, btc, sharesM float64) models.ScrapedCompany {
	return models.ScrapedCompany{
		Name:                      name,
		Ticker:                    ticker,
		Exchange:                  exchange,
		Country:                   country,
		BTCHoldings:               btc,
		SharesOutstandingMillions: models.Ptr(sharesM),
	}
}

// seedCompanies populates an empty database so the dashboard has rows before
// the first holdings refresh completes.
var seedCompanies = []models.ScrapedCompany{
	seed("MicroStrategy", "MSTR", "NASDAQ", "US", 190000, 19.5),
	seed("Tesla", "TSLA", "NASDAQ", "US", 9720, 3180),
	seed("Block Inc", "SQ", "NYSE", "US", 8027, 580),
	seed("Coinbase", "COIN", "NASDAQ", "US", 9000, 230),
	seed("Marathon Digital", "MARA", "NASDAQ", "US", 15174, 240),
	seed("Riot Platforms", "RIOT", "NASDAQ", "US", 7327, 170),
	seed("Hut 8 Mining", "HUT", "NASDAQ", "CA", 9086, 90),
	seed("CleanSpark", "CLSK", "NASDAQ", "US", 5165, 220),
	seed("Galaxy Digital", "GLXY.TO", "TSX", "CA", 8100, 32),
	seed("Bitfarms", "BITF", "NASDAQ", "CA", 1000, 440),
}
