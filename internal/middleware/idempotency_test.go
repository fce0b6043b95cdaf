package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// Stations retry POSTs on flaky wifi. A retried scan with the same
// Idempotency-Key must not count the item twice.
func TestIdempotency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newScanRouter := func(cfg IdempotencyConfig, hits *int) *gin.Engine {
		router := gin.New()
		router.Use(Idempotency(cfg))
		router.POST("/api/scan", func(c *gin.Context) {
			*hits++
			c.String(http.StatusOK, `{"outcome":"match","scan":`+strconv.Itoa(*hits)+`}`)
		})
		router.GET("/api/jobs/j1/progress", func(c *gin.Context) {
			*hits++
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	scanBody := `{"job_id":"job-42","bar_code":"111","box_number":5}`

	t.Run("retried scan replays the first response", func(t *testing.T) {
		var hits int
		router := newScanRouter(DefaultIdempotencyConfig(), &hits)

		first := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte(scanBody)))
		first.Header.Set(IdempotencyKeyHeader, "station-7-scan-0042")
		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, first)

		retry := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte(scanBody)))
		retry.Header.Set(IdempotencyKeyHeader, "station-7-scan-0042")
		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, retry)

		assert.Equal(t, 1, hits, "handler must run once for a retried key")
		assert.Equal(t, w1.Body.String(), w2.Body.String())
		assert.Equal(t, "true", w2.Header().Get("X-Idempotency-Replayed"))
		assert.Empty(t, w1.Header().Get("X-Idempotency-Replayed"))
	})

	t.Run("distinct keys are processed independently", func(t *testing.T) {
		var hits int
		router := newScanRouter(DefaultIdempotencyConfig(), &hits)

		for _, key := range []string{"station-7-scan-0042", "station-7-scan-0043"} {
			req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte(scanBody)))
			req.Header.Set(IdempotencyKeyHeader, key)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		assert.Equal(t, 2, hits)
	})

	t.Run("scan without a key is never deduplicated", func(t *testing.T) {
		var hits int
		router := newScanRouter(DefaultIdempotencyConfig(), &hits)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte(scanBody)))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		assert.Equal(t, 2, hits)
	})

	t.Run("progress reads bypass the cache", func(t *testing.T) {
		var hits int
		router := newScanRouter(DefaultIdempotencyConfig(), &hits)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/jobs/j1/progress", nil)
			req.Header.Set(IdempotencyKeyHeader, "station-7-scan-0042")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		assert.Equal(t, 2, hits)
	})
}

func TestIdempotency_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := DefaultIdempotencyConfig()
	cfg.Enabled = false
	cfg.Cache = nil

	var hits int
	router := gin.New()
	router.Use(Idempotency(cfg))
	router.POST("/api/scan", func(c *gin.Context) {
		hits++
		c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte(`{"bar_code":"111"}`)))
		req.Header.Set(IdempotencyKeyHeader, "station-7-scan-0042")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 2, hits, "disabled middleware must not deduplicate")
}

func TestIdempotencyCache_cleanup(t *testing.T) {
	cache := newIdempotencyCache(100 * time.Millisecond)

	cache.mu.Lock()
	cache.items[1] = &cachedResponse{
		StatusCode: 200,
		Headers:    make(map[string]string),
		Body:       []byte(`{"outcome":"match"}`),
		Timestamp:  time.Now().Add(-2 * time.Hour),
	}
	cache.items[2] = &cachedResponse{
		StatusCode: 200,
		Headers:    make(map[string]string),
		Body:       []byte(`{"outcome":"match"}`),
		Timestamp:  time.Now(),
	}
	cache.mu.Unlock()

	cache.cleanup()

	cache.mu.Lock()
	_, staleExists := cache.items[1]
	_, freshExists := cache.items[2]
	cache.mu.Unlock()

	assert.False(t, staleExists, "entry past its TTL is dropped")
	assert.True(t, freshExists, "fresh entry survives cleanup")
}
