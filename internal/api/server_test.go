package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMarket struct {
	quotes map[string]*models.PairInfo
}

func (m *stubMarket) FetchPairsData(ctx context.Context, addresses []string) map[string]*models.PairInfo {
	result := make(map[string]*models.PairInfo)
	for _, addr := range addresses {
		result[strings.TrimSpace(addr)] = m.quotes[strings.TrimSpace(addr)]
	}
	return result
}

func (m *stubMarket) FetchSingle(ctx context.Context, query string) *models.PairInfo {
	return m.quotes[strings.TrimSpace(query)]
}

func setupTestServer(t *testing.T, market *stubMarket) (*httptest.Server, *store.TradeStore) {
	t.Helper()
	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	st := store.NewTradeStore(db)

	cfg := &config.Config{Journal: config.Journal{SyncIntervalSec: 30}}
	engine := journal.NewEngine(zap.NewNop(), cfg, market, st)
	s := NewServer(0, zap.NewNop(), st, engine, market)

	server := httptest.NewServer(s.server.Handler)
	t.Cleanup(server.Close)
	return server, st
}

const importPayload = "date,coinSlugOrAddress,entryPrice,quantity,targetPrice,stopLoss,status,notes\n" +
	"2024-03-01T10:00:00Z,0xaaa,1,10,2,0.5,open,good\n" +
	"2024-03-02T10:00:00Z,0xbbb,1,10,2,0.5,pending,skipped\n"

func TestImportEndpoint(t *testing.T) {
	server, st := setupTestServer(t, &stubMarket{})

	resp, err := http.Post(server.URL+"/api/import", "text/csv", strings.NewReader(importPayload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Imported int      `json:"imported"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Imported)
	require.Len(t, body.Warnings, 1)
	assert.Contains(t, body.Warnings[0], "pending")

	trades, err := st.GetAll()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "0xaaa", trades[0].CoinSlugOrAddress)
}

func TestImportEndpointStructuralError(t *testing.T) {
	server, st := setupTestServer(t, &stubMarket{})

	payload := "date,entryPrice\n2024-03-01T10:00:00Z,1\n"
	resp, err := http.Post(server.URL+"/api/import", "text/csv", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "stopLoss")

	trades, err := st.GetAll()
	require.NoError(t, err)
	assert.Empty(t, trades, "a structural error imports nothing")
}

func TestTradeCRUD(t *testing.T) {
	server, _ := setupTestServer(t, &stubMarket{})

	created := models.Trade{
		CoinSlugOrAddress: "0xaaa",
		EntryPrice:        1,
		TargetPrice:       2,
		StopLoss:          0.5,
		Quantity:          10,
		Status:            models.StatusClosedLoss, // must be overridden to open
	}
	payload, err := json.Marshal(created)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/trades", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	var stored models.Trade
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotZero(t, stored.ID)
	assert.Equal(t, models.StatusOpen, stored.Status, "new trades always start open")

	resp, err = http.Get(server.URL + "/api/trades")
	require.NoError(t, err)
	var list []models.Trade
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/trades/1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestScanEndpoint(t *testing.T) {
	market := &stubMarket{quotes: map[string]*models.PairInfo{
		"0xabc": {PriceUsd: 1.25, BaseTokenSymbol: "TST"},
	}}
	server, _ := setupTestServer(t, market)

	resp, err := http.Get(server.URL + "/api/scan?q=0xabc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info models.PairInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, 1.25, info.PriceUsd)

	missing, err := http.Get(server.URL + "/api/scan?q=0xnope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestExportEndpointRoundTripsImport(t *testing.T) {
	server, _ := setupTestServer(t, &stubMarket{})

	resp, err := http.Post(server.URL+"/api/import", "text/csv", strings.NewReader(importPayload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/export.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "0xaaa")
	assert.Contains(t, buf.String(), "date,coinSlugOrAddress")
}

func TestUpdateTradeNormalizesStatus(t *testing.T) {
	server, st := setupTestServer(t, &stubMarket{})

	trade := models.Trade{
		CoinSlugOrAddress: "0xaaa",
		EntryPrice:        1,
		TargetPrice:       2,
		StopLoss:          0.5,
		Quantity:          10,
	}
	payload, err := json.Marshal(trade)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/api/trades", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	var created models.Trade
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	// Mixed-case status tokens are accepted on input but must always be
	// stored as the canonical lowercase value.
	for _, tc := range []struct {
		given    string
		expected models.TradeStatus
	}{
		{"OPEN", models.StatusOpen},
		{"Closed-Profit", models.StatusClosedProfit},
		{"CLOSED-LOSS", models.StatusClosedLoss},
	} {
		created.Status = models.TradeStatus(tc.given)
		payload, err = json.Marshal(created)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPut,
			fmt.Sprintf("%s/api/trades/%d", server.URL, created.ID), bytes.NewReader(payload))
		require.NoError(t, err)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		stored, err := st.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, stored.Status)
	}
}

func TestUpdateTradeRejectsUnknownStatus(t *testing.T) {
	server, st := setupTestServer(t, &stubMarket{})

	trade := models.Trade{CoinSlugOrAddress: "0xaaa", EntryPrice: 1, TargetPrice: 2, StopLoss: 0.5, Quantity: 10}
	payload, err := json.Marshal(trade)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/api/trades", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	var created models.Trade
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	created.Status = "pending"
	payload, err = json.Marshal(created)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/trades/%d", server.URL, created.ID), bytes.NewReader(payload))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	stored, err := st.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, stored.Status, "a rejected update must not change the stored status")
}

func TestImportEndpointRejectsOversizedUpload(t *testing.T) {
	server, st := setupTestServer(t, &stubMarket{})

	// One byte over the limit; the upload must be refused outright, not
	// truncated into a partial import.
	oversized := importPayload + strings.Repeat("x", maxImportBytes)
	resp, err := http.Post(server.URL+"/api/import", "text/csv", strings.NewReader(oversized))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	trades, err := st.GetAll()
	require.NoError(t, err)
	assert.Empty(t, trades)
}
