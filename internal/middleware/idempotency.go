// Package middleware provides HTTP middleware components for the sortline service.
package middleware

import (
	"bytes"
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// IdempotencyKeyHeader is the HTTP header stations send with mutating
	// requests so a wifi retry never counts an item twice.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL bounds how long a replayed response stays available.
	// It only needs to outlive a station's retry window, not the shift.
	IdempotencyKeyTTL = 5 * time.Minute
)

// cachedResponse is the recorded outcome of a keyed request, replayed
// verbatim when the same key arrives again.
type cachedResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Timestamp  time.Time
}

// IdempotencyConfig holds configuration for the idempotency middleware.
type IdempotencyConfig struct {
	Cache   *idempotencyCache
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the configuration the router installs
// on scan and check endpoints.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		Cache:   newIdempotencyCache(IdempotencyKeyTTL),
		TTL:     IdempotencyKeyTTL,
		Enabled: true,
	}
}

// Idempotency deduplicates mutating requests by Idempotency-Key. The first
// request with a key runs normally and its response is recorded; repeats
// within the TTL get that response back with X-Idempotency-Replayed set,
// without touching the handler again.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Cache == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !mutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		fingerprint := requestFingerprint(key, c.Request)

		if prior, ok := cfg.Cache.Get(fingerprint); ok {
			for k, v := range prior.Headers {
				c.Header(k, v)
			}
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(prior.StatusCode, "application/json", prior.Body)
			c.Abort()
			return
		}

		recorder := &replayRecorder{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
			headers:        make(map[string]string),
		}
		c.Writer = recorder

		c.Next()

		// Only successful outcomes are worth replaying. A failed scan should
		// be retried for real.
		if recorder.statusCode >= 200 && recorder.statusCode < 300 {
			cfg.Cache.Set(fingerprint, &cachedResponse{
				StatusCode: recorder.statusCode,
				Headers:    recorder.headers,
				Body:       recorder.body.Bytes(),
				Timestamp:  time.Now(),
			})
		}
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// requestFingerprint hashes the key together with method, path, and body so
// reusing a key for a different request never replays the wrong response.
func requestFingerprint(idempotencyKey string, req *http.Request) int {
	hasher := sha256.New()
	hasher.Write([]byte(idempotencyKey))
	hasher.Write([]byte(req.Method))
	hasher.Write([]byte(req.URL.Path))

	if req.Body != nil {
		bodyBytes, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		if len(bodyBytes) > 0 {
			hasher.Write(bodyBytes)
		}
	}

	hash := hasher.Sum(nil)
	var key int
	for i := 0; i < 8 && i < len(hash); i++ {
		key = key<<8 | int(hash[i])
	}
	if key < 0 {
		key = -key
	}
	return key
}

// replayRecorder tees the response into a buffer while it streams to the
// station, so the outcome can be cached.
type replayRecorder struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	headers    map[string]string
}

func (w *replayRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *replayRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *replayRecorder) Header() http.Header {
	headers := w.ResponseWriter.Header()
	for k, v := range headers {
		if len(v) > 0 {
			w.headers[k] = v[0]
		}
	}
	return headers
}
