// Package middleware provides HTTP middleware components for the sortline service.
package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Compression gzips responses for clients that accept it. Progress payloads
// for a full job are the main beneficiaries; single scan responses are tiny
// either way.
func Compression() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression)
}
