package models

// StockBatchResult summarises one pass over every known ticker.
type StockBatchResult struct {
	Attempted int      `json:"attempted"`
	Updated   int      `json:"updated"`
	Failed    []string `json:"failed,omitempty"`
}

// HoldingsRefreshResult summarises one holdings refresh.
type HoldingsRefreshResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
