// Package api exposes the journal over HTTP: trade CRUD, manual price
// refresh, autofill lookups, and the CSV/workbook import-export
// surface. It holds no journal logic of its own.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"trade-journal-go/internal/csvio"
	"trade-journal-go/internal/dexscreener"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxImportBytes bounds CSV upload bodies.
const maxImportBytes = 8 << 20

// Server provides the HTTP interface for the journal.
type Server struct {
	server *http.Server
	logger *zap.Logger
	store  *store.TradeStore
	engine *journal.Engine
	market dexscreener.PairDataProvider
}

// NewServer creates a new API server listening on the given port.
func NewServer(port int, logger *zap.Logger, st *store.TradeStore, engine *journal.Engine, market dexscreener.PairDataProvider) *Server {
	s := &Server{
		logger: logger.Named("api-server"),
		store:  st,
		engine: engine,
		market: market,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.HandleFunc("GET /api/trades", s.listTradesHandler)
	mux.HandleFunc("POST /api/trades", s.createTradeHandler)
	mux.HandleFunc("PUT /api/trades/{id}", s.updateTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", s.deleteTradeHandler)
	mux.HandleFunc("POST /api/trades/bulk-delete", s.bulkDeleteHandler)
	mux.HandleFunc("POST /api/refresh", s.refreshHandler)
	mux.HandleFunc("GET /api/scan", s.scanHandler)
	mux.HandleFunc("GET /api/export.csv", s.exportCSVHandler)
	mux.HandleFunc("GET /api/export.xlsx", s.exportXLSXHandler)
	mux.HandleFunc("GET /api/template.csv", s.templateHandler)
	mux.HandleFunc("POST /api/import", s.importHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) listTradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.GetAll()
	if err != nil {
		s.logger.Error("Failed to load trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Decorate(trades))
}

func (s *Server) createTradeHandler(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid trade payload")
		return
	}

	// New positions always start open; the engine owns every later
	// transition.
	trade.Model = gorm.Model{}
	trade.Status = models.StatusOpen
	clearTransient(&trade)

	id, err := s.store.Add(&trade)
	if err != nil {
		s.logger.Error("Failed to add trade", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to add trade")
		return
	}
	s.engine.RefreshNow()
	s.logger.Info("Trade added", zap.Uint("trade_id", id))
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) updateTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	current, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		s.logger.Error("Failed to load trade", zap.Uint("trade_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load trade")
		return
	}

	var payload models.Trade
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid trade payload")
		return
	}
	status, ok := models.ParseTradeStatus(string(payload.Status))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid trade status")
		return
	}

	current.CoinSlugOrAddress = payload.CoinSlugOrAddress
	current.EntryPrice = payload.EntryPrice
	current.TargetPrice = payload.TargetPrice
	current.StopLoss = payload.StopLoss
	current.Quantity = payload.Quantity
	current.Notes = payload.Notes
	current.Date = payload.Date
	// Store the canonical lowercase token, not the caller's casing.
	current.Status = status
	current.EntryMarketCap = payload.EntryMarketCap
	current.TargetMarketCap = payload.TargetMarketCap
	clearTransient(current)

	if err := s.store.Update(current); err != nil {
		s.logger.Error("Failed to update trade", zap.Uint("trade_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to update trade")
		return
	}
	if current.Status == models.StatusOpen {
		s.engine.RefreshNow()
	}
	s.writeJSON(w, http.StatusOK, current)
}

func (s *Server) deleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.logger.Error("Failed to delete trade", zap.Uint("trade_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkDeleteHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []uint `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.store.BulkDelete(payload.IDs); err != nil {
		s.logger.Error("Failed to bulk-delete trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to delete trades")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.RefreshNow()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	info := s.market.FetchSingle(r.Context(), query)
	if info == nil {
		s.writeError(w, http.StatusNotFound, "no matching pair found")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) exportCSVHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.GetAll()
	if err != nil {
		s.logger.Error("Failed to load trades for export", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := csvio.WriteCSV(w, trades); err != nil {
		s.logger.Error("CSV export failed", zap.Error(err))
	}
}

func (s *Server) exportXLSXHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.GetAll()
	if err != nil {
		s.logger.Error("Failed to load trades for export", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.xlsx"`)
	if err := csvio.WriteXLSX(w, trades); err != nil {
		s.logger.Error("Workbook export failed", zap.Error(err))
	}
}

func (s *Server) templateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades_template.csv"`)
	if err := csvio.Template(w); err != nil {
		s.logger.Error("Template export failed", zap.Error(err))
	}
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := csvio.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.BulkAdd(result.Trades); err != nil {
		s.logger.Error("Failed to store imported trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store imported trades")
		return
	}
	s.engine.RefreshNow()
	s.logger.Info("Trades imported",
		zap.Int("imported", len(result.Trades)),
		zap.Int("skipped", len(result.Warnings)),
	)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"imported": len(result.Trades),
		"warnings": result.Warnings,
	})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid trade id")
		return 0, false
	}
	return uint(id), true
}

func clearTransient(t *models.Trade) {
	t.LivePrice = nil
	t.Pnl = nil
	t.PnlPercent = nil
	t.PairInfo = nil
}
