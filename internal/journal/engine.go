package journal

import (
	"context"
	"strings"
	"sync"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/dexscreener"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"go.uber.org/zap"
)

// quote is the last resolved transient state for one trade id.
type quote struct {
	livePrice  float64
	pnl        float64
	pnlPercent float64
	pair       *models.PairInfo
}

// Engine runs the periodic price-sync cycle: it resolves live quotes
// for every open trade, recomputes PnL, and auto-closes trades that hit
// their target or stop threshold. The scheduled tick and the manual
// refresh trigger share the same sync routine.
type Engine struct {
	logger    *zap.Logger
	cfg       *config.Config
	market    dexscreener.PairDataProvider
	store     *store.TradeStore
	refreshCh chan struct{}

	mu     sync.RWMutex
	quotes map[uint]quote
}

// NewEngine creates a new price-sync engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, market dexscreener.PairDataProvider, st *store.TradeStore) *Engine {
	return &Engine{
		logger:    logger,
		cfg:       cfg,
		market:    market,
		store:     st,
		refreshCh: make(chan struct{}, 1),
		quotes:    make(map[uint]quote),
	}
}

// Run starts the engine's sync loop and blocks until ctx is cancelled.
// Cancelling ctx stops the ticker and forbids further merges.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.Journal.SyncIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting price sync loop", zap.Duration("interval", interval))

	// Prices should be live right after startup, not one interval later.
	e.SyncPass(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping price sync engine...")
			return
		case <-ticker.C:
			e.SyncPass(ctx)
		case <-e.refreshCh:
			e.SyncPass(ctx)
		}
	}
}

// RefreshNow requests an immediate sync pass. The request is dropped if
// one is already queued.
func (e *Engine) RefreshNow() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

// Sync resolves live quotes for every open trade in the given set and
// returns the updated set. Trades in a terminal status are returned
// untouched and excluded from the outgoing request. A trade whose
// address did not resolve keeps its previous status and transient
// values; resolution failure is never an error at this boundary.
func (e *Engine) Sync(ctx context.Context, trades []models.Trade) []models.Trade {
	var addresses []string
	for _, t := range trades {
		if t.Status == models.StatusOpen {
			addresses = append(addresses, t.CoinSlugOrAddress)
		}
	}

	out := make([]models.Trade, len(trades))
	copy(out, trades)
	if len(addresses) == 0 {
		return out
	}

	quotes := e.market.FetchPairsData(ctx, addresses)

	for i := range out {
		t := &out[i]
		if t.Status != models.StatusOpen {
			continue
		}
		info := quotes[strings.TrimSpace(t.CoinSlugOrAddress)]
		if info == nil {
			continue
		}

		livePrice := info.PriceUsd
		pnl, pnlPercent := Pnl(t.EntryPrice, t.Quantity, livePrice)
		t.LivePrice = &livePrice
		t.Pnl = &pnl
		t.PnlPercent = &pnlPercent
		t.PairInfo = info

		// One evaluation per pass, profit before stop.
		switch {
		case livePrice >= t.TargetPrice:
			t.Status = models.StatusClosedProfit
		case livePrice <= t.StopLoss:
			t.Status = models.StatusClosedLoss
		}
	}

	return out
}

// SyncPass runs one full cycle: load the trade set, resolve quotes, and
// merge the results back per trade id against the snapshot current at
// merge time, so a user edit or delete that landed while requests were
// in flight is never clobbered.
func (e *Engine) SyncPass(ctx context.Context) {
	trades, err := e.store.GetAll()
	if err != nil {
		e.logger.Error("Sync pass aborted, could not load trades", zap.Error(err))
		return
	}

	updated := e.Sync(ctx, trades)

	if ctx.Err() != nil {
		// Torn down while requests were in flight; discard the results.
		return
	}

	latest, err := e.store.GetAll()
	if err != nil {
		e.logger.Error("Sync merge aborted, could not reload trades", zap.Error(err))
		return
	}
	latestByID := make(map[uint]models.Trade, len(latest))
	for _, t := range latest {
		latestByID[t.ID] = t
	}

	closed := 0
	e.mu.Lock()
	for _, t := range updated {
		if t.LivePrice == nil {
			continue // unresolved, keep last-known state
		}
		current, ok := latestByID[t.ID]
		if !ok {
			continue // deleted mid-flight
		}
		e.quotes[t.ID] = quote{
			livePrice:  *t.LivePrice,
			pnl:        *t.Pnl,
			pnlPercent: *t.PnlPercent,
			pair:       t.PairInfo,
		}
		if current.Status == models.StatusOpen && t.Status.Terminal() {
			current.Status = t.Status
			if err := e.store.Update(&current); err != nil {
				e.logger.Error("Failed to persist auto-close",
					zap.Uint("trade_id", t.ID), zap.Error(err))
				continue
			}
			closed++
			e.logger.Info("Trade auto-closed",
				zap.Uint("trade_id", t.ID),
				zap.String("status", string(t.Status)),
				zap.Float64("live_price", *t.LivePrice),
			)
		}
	}
	// Drop stale quotes for trades that no longer exist.
	for id := range e.quotes {
		if _, ok := latestByID[id]; !ok {
			delete(e.quotes, id)
		}
	}
	e.mu.Unlock()

	e.logger.Debug("Sync pass complete",
		zap.Int("trades", len(trades)),
		zap.Int("auto_closed", closed),
	)
}

// Decorate attaches the last resolved transient values to the given
// trades. Trades never resolved are returned as stored.
func (e *Engine) Decorate(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	copy(out, trades)

	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range out {
		q, ok := e.quotes[out[i].ID]
		if !ok {
			continue
		}
		livePrice, pnl, pnlPercent := q.livePrice, q.pnl, q.pnlPercent
		out[i].LivePrice = &livePrice
		out[i].Pnl = &pnl
		out[i].PnlPercent = &pnlPercent
		out[i].PairInfo = q.pair
	}
	return out
}
