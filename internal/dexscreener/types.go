package dexscreener

import (
	"sort"
	"strconv"

	"trade-journal-go/internal/models"
)

// apiResponse is the JSON body returned by both the /tokens and /pairs
// endpoints.
type apiResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Token identifies one side of a trading pair.
type Token struct {
	Address string `json:"address,omitempty"`
	Name    string `json:"name,omitempty"`
	Symbol  string `json:"symbol"`
}

// Windows carries the per-time-window figures the API reports for
// volume and price change. Only the 24h window is load-bearing here.
type Windows struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Liquidity is the optional liquidity block of a pair.
type Liquidity struct {
	Usd   *float64 `json:"usd,omitempty"`
	Base  float64  `json:"base"`
	Quote float64  `json:"quote"`
}

// Pair is one candidate trading venue for a token, as returned by the
// API. A single queried address may yield several of these from
// different exchanges and pools.
type Pair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	URL         string     `json:"url"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   Token      `json:"baseToken"`
	QuoteToken  Token      `json:"quoteToken"`
	PriceNative string     `json:"priceNative"`
	PriceUsd    string     `json:"priceUsd,omitempty"`
	Volume      Windows    `json:"volume"`
	PriceChange Windows    `json:"priceChange"`
	Liquidity   *Liquidity `json:"liquidity,omitempty"`
	Fdv         *float64   `json:"fdv,omitempty"`
}

func (p *Pair) liquidityUsd() float64 {
	if p.Liquidity == nil || p.Liquidity.Usd == nil {
		return 0
	}
	return *p.Liquidity.Usd
}

// bestPair picks the single venue that represents a queried address.
// A pair with nonzero USD liquidity always outranks one without; ties
// on liquidity status rank by descending 24h volume. A top candidate
// with no priceUsd means the address has no usable quote.
func bestPair(pairs []Pair) *models.PairInfo {
	if len(pairs) == 0 {
		return nil
	}

	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].liquidityUsd(), sorted[j].liquidityUsd()
		if li > 0 && lj == 0 {
			return true
		}
		if lj > 0 && li == 0 {
			return false
		}
		return sorted[i].Volume.H24 > sorted[j].Volume.H24
	})

	best := sorted[0]
	if best.PriceUsd == "" {
		return nil
	}
	priceUsd, err := strconv.ParseFloat(best.PriceUsd, 64)
	if err != nil {
		return nil
	}

	info := &models.PairInfo{
		PriceUsd:         priceUsd,
		Volume24h:        best.Volume.H24,
		PriceChange24h:   best.PriceChange.H24,
		URL:              best.URL,
		DexID:            best.DexID,
		ChainID:          best.ChainID,
		BaseTokenSymbol:  best.BaseToken.Symbol,
		QuoteTokenSymbol: best.QuoteToken.Symbol,
		PairAddress:      best.PairAddress,
		BaseTokenName:    best.BaseToken.Name,
		BaseTokenAddress: best.BaseToken.Address,
	}
	if best.Liquidity != nil && best.Liquidity.Usd != nil {
		usd := *best.Liquidity.Usd
		info.LiquidityUsd = &usd
	}
	return info
}
