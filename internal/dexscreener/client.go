package dexscreener

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// chunkSize is the hard cardinality limit of the batch /tokens endpoint.
const chunkSize = 30

// PairDataProvider defines the interface for the market-data client.
type PairDataProvider interface {
	FetchPairsData(ctx context.Context, addresses []string) map[string]*models.PairInfo
	FetchSingle(ctx context.Context, query string) *models.PairInfo
}

type cacheEntry struct {
	info      *models.PairInfo
	fetchedAt time.Time
}

// Client is a client for the Dexscreener REST API. It owns two
// time-boxed caches: a short one for bulk portfolio refresh and a
// longer one for interactive autofill lookups. Caches belong to the
// instance, so independent clients never share state.
// It implements the PairDataProvider interface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	bulkTTL time.Duration
	scanTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	bulkCache map[string]cacheEntry
	scanCache map[string]cacheEntry
}

// ensure Client implements the interface
var _ PairDataProvider = (*Client)(nil)

// NewClient creates a new Dexscreener API client.
func NewClient(cfg *config.Dexscreener, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:    client,
		logger:    logger,
		limiter:   limiter,
		bulkTTL:   time.Duration(cfg.BulkCacheTTLMs) * time.Millisecond,
		scanTTL:   time.Duration(cfg.ScanCacheTTLMs) * time.Millisecond,
		now:       time.Now,
		bulkCache: make(map[string]cacheEntry),
		scanCache: make(map[string]cacheEntry),
	}
}

// doRequest handles request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(http.MethodGet, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// FetchPairsData resolves a set of token addresses to their best-ranked
// pair snapshots. Addresses are trimmed and deduplicated, served from
// the bulk cache when fresh, and the remainder fetched in chunks of at
// most chunkSize addresses, one request per chunk. A chunk-level
// failure degrades every address in that chunk to nil without touching
// the other chunks. Unresolved addresses map to nil, never to an error.
func (c *Client) FetchPairsData(ctx context.Context, addresses []string) map[string]*models.PairInfo {
	result := make(map[string]*models.PairInfo)

	// Normalize and deduplicate before any network access.
	seen := make(map[string]struct{})
	var unique []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	// Serve fresh entries from the cache.
	var toFetch []string
	c.mu.Lock()
	for _, addr := range unique {
		if entry, ok := c.bulkCache[addr]; ok && c.now().Sub(entry.fetchedAt) < c.bulkTTL {
			result[addr] = entry.info
		} else {
			toFetch = append(toFetch, addr)
		}
	}
	c.mu.Unlock()

	if len(toFetch) == 0 {
		return result
	}

	// One request per chunk, issued independently so a failing batch
	// cannot poison the others.
	var wg sync.WaitGroup
	var resultMu sync.Mutex
	for start := 0; start < len(toFetch); start += chunkSize {
		end := start + chunkSize
		if end > len(toFetch) {
			end = len(toFetch)
		}
		chunk := toFetch[start:end]

		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()
			resolved := c.fetchChunk(ctx, chunk)
			resultMu.Lock()
			for addr, info := range resolved {
				result[addr] = info
			}
			resultMu.Unlock()
		}(chunk)
	}
	wg.Wait()

	return result
}

// fetchChunk resolves one batch of at most chunkSize addresses.
func (c *Client) fetchChunk(ctx context.Context, chunk []string) map[string]*models.PairInfo {
	resolved := make(map[string]*models.PairInfo, len(chunk))

	var body apiResponse
	req := c.client.R().
		SetResult(&body).
		SetHeader("Accept", "application/json")

	_, err := c.doRequest(ctx, "/tokens/"+strings.Join(chunk, ","), req)
	if err != nil {
		c.logger.Warn("Chunk fetch failed, marking addresses unresolved",
			zap.Int("addresses", len(chunk)),
			zap.Error(err),
		)
		for _, addr := range chunk {
			resolved[addr] = nil
		}
		return resolved
	}

	// Group returned pairs by the queried address they belong to. The
	// API reports base-token addresses in its own casing, so matching
	// is case-insensitive.
	chunkByLower := make(map[string]string, len(chunk))
	for _, addr := range chunk {
		chunkByLower[strings.ToLower(addr)] = addr
	}

	pairsByAddress := make(map[string][]Pair)
	for _, pair := range body.Pairs {
		if original, ok := chunkByLower[strings.ToLower(pair.BaseToken.Address)]; ok {
			pairsByAddress[original] = append(pairsByAddress[original], pair)
		}
	}

	now := c.now()
	c.mu.Lock()
	for _, addr := range chunk {
		info := bestPair(pairsByAddress[addr])
		resolved[addr] = info
		if info != nil {
			// Null resolutions are never cached; the next sync pass
			// gets another chance at them.
			c.bulkCache[addr] = cacheEntry{info: info, fetchedAt: now}
		}
	}
	c.mu.Unlock()

	return resolved
}

// FetchSingle resolves one interactive autofill query. It tries the
// token-address endpoint first and falls back to the pair-address
// endpoint, caching a hit under the literal trimmed query with the
// longer scanner TTL. Returns nil when neither strategy matches.
func (c *Client) FetchSingle(ctx context.Context, query string) *models.PairInfo {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	c.mu.Lock()
	if entry, ok := c.scanCache[query]; ok && c.now().Sub(entry.fetchedAt) < c.scanTTL {
		c.mu.Unlock()
		return entry.info
	}
	c.mu.Unlock()

	for _, endpoint := range []string{"/tokens/", "/pairs/"} {
		var body apiResponse
		req := c.client.R().
			SetResult(&body).
			SetHeader("Accept", "application/json")

		if _, err := c.doRequest(ctx, endpoint+query, req); err != nil {
			c.logger.Warn("Autofill lookup failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			continue
		}

		if info := bestPair(body.Pairs); info != nil {
			c.mu.Lock()
			c.scanCache[query] = cacheEntry{info: info, fetchedAt: c.now()}
			c.mu.Unlock()
			return info
		}
	}

	return nil
}
