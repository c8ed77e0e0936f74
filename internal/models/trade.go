package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// TradeStatus is the lifecycle state of a logged position.
type TradeStatus string

const (
	StatusOpen         TradeStatus = "open"
	StatusClosedProfit TradeStatus = "closed-profit"
	StatusClosedLoss   TradeStatus = "closed-loss"
)

// Terminal reports whether the status excludes the trade from further
// price polling. The record itself stays editable.
func (s TradeStatus) Terminal() bool {
	return s == StatusClosedProfit || s == StatusClosedLoss
}

// ParseTradeStatus maps a case-insensitive token to a TradeStatus.
func ParseTradeStatus(s string) (TradeStatus, bool) {
	switch TradeStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOpen:
		return StatusOpen, true
	case StatusClosedProfit:
		return StatusClosedProfit, true
	case StatusClosedLoss:
		return StatusClosedLoss, true
	}
	return "", false
}

// Trade represents a logged position in the journal.
//
// The fields tagged gorm:"-" are recomputed on every sync pass and must
// never reach the database.
type Trade struct {
	gorm.Model
	CoinSlugOrAddress string      `json:"coinSlugOrAddress"`
	EntryPrice        float64     `json:"entryPrice"`
	TargetPrice       float64     `json:"targetPrice"`
	StopLoss          float64     `json:"stopLoss"`
	Quantity          float64     `json:"quantity"`
	Notes             string      `json:"notes"`
	Date              time.Time   `json:"date"`
	Status            TradeStatus `json:"status"`
	EntryMarketCap    *float64    `json:"entryMarketCap,omitempty"`
	TargetMarketCap   *float64    `json:"targetMarketCap,omitempty"`

	LivePrice  *float64  `gorm:"-" json:"livePrice,omitempty"`
	Pnl        *float64  `gorm:"-" json:"pnl,omitempty"`
	PnlPercent *float64  `gorm:"-" json:"pnlPercent,omitempty"`
	PairInfo   *PairInfo `gorm:"-" json:"pairInfo,omitempty"`
}
