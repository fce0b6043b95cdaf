package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	cfg := DefaultTimeoutConfig()

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "Request timeout", cfg.ErrorMessage)
}

// Mutating endpoints run under a deadline so a wedged store call
// cannot hold a station's scan request open forever.
func TestTimeout_ScanCompletesInTime(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		handlerDelay time.Duration
		wantStatus   int
	}{
		{
			name:         "normal scan latency",
			timeout:      time.Second,
			handlerDelay: 10 * time.Millisecond,
			wantStatus:   http.StatusOK,
		},
		{
			name:         "cache hit answers instantly",
			timeout:      time.Second,
			handlerDelay: 0,
			wantStatus:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			router := gin.New()

			cfg := TimeoutConfig{
				Timeout:      tt.timeout,
				ErrorMessage: "Request timeout",
			}

			router.Use(Timeout(cfg))
			router.POST("/api/scan", func(c *gin.Context) {
				if tt.handlerDelay > 0 {
					time.Sleep(tt.handlerDelay)
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestTimeout_SlowStoreCallIsCut(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(RequestID(), Timeout(TimeoutConfig{
		Timeout:      20 * time.Millisecond,
		ErrorMessage: "Request timeout",
	}))
	router.POST("/api/scan", func(c *gin.Context) {
		// Simulates a store lookup that never answers within the deadline.
		select {
		case <-c.Request.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
		if c.Request.Context().Err() == nil {
			c.Status(http.StatusOK)
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
}

func TestTimeoutWithDuration(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{name: "1 second timeout", timeout: time.Second},
		{name: "5 second timeout", timeout: 5 * time.Second},
		{name: "100ms timeout", timeout: 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			router := gin.New()

			router.Use(TimeoutWithDuration(tt.timeout))
			router.POST("/api/undo", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/undo", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestTimeout_ContextHasDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	cfg := TimeoutConfig{
		Timeout:      time.Second,
		ErrorMessage: "Request timeout",
	}

	hasDeadline := false
	router.Use(Timeout(cfg))
	router.POST("/api/scan", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.True(t, hasDeadline, "store calls must receive a bounded context")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimeout_BurstOfFastScans(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	cfg := TimeoutConfig{
		Timeout:      100 * time.Millisecond,
		ErrorMessage: "Request timeout",
	}

	router.Use(Timeout(cfg))
	router.POST("/api/scan", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
