package models

// PairInfo is a market-data snapshot for one queried address, taken
// from the best-ranked venue trading that token. It is produced by the
// dexscreener client and consumed read-only.
type PairInfo struct {
	PriceUsd         float64  `json:"priceUsd"`
	Volume24h        float64  `json:"volume24h"`
	LiquidityUsd     *float64 `json:"liquidityUsd,omitempty"`
	PriceChange24h   float64  `json:"priceChange24h"`
	URL              string   `json:"url"`
	DexID            string   `json:"dexId"`
	ChainID          string   `json:"chainId"`
	BaseTokenSymbol  string   `json:"baseTokenSymbol"`
	QuoteTokenSymbol string   `json:"quoteTokenSymbol"`
	PairAddress      string   `json:"pairAddress"`
	BaseTokenName    string   `json:"baseTokenName"`
	BaseTokenAddress string   `json:"baseTokenAddress"`
}
