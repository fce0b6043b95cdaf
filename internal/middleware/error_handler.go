package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/sortline-service/internal/domain/dto"
	"github.com/guttosm/sortline-service/internal/i18n"
	"github.com/guttosm/sortline-service/internal/logger"
)

// ErrorHandler catches errors that handlers attach to the gin context but do
// not answer themselves, typically store failures mid-scan. The raw error
// text (driver messages, hostnames) is logged, never sent to the station.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			requestID := GetRequestID(c)
			locale := i18n.GetLocale(c)
			
			log := logger.Logger()
			log.Error().
				Str("request_id", requestID).
				Str("error", err.Error()).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")

			if !c.Writer.Written() {
				message := i18n.GetTranslator().Translate(i18n.ErrKeyInternalError, locale)
				errorResp := dto.NewError(dto.ErrCodeInternal, message).
					WithRequestID(requestID)
				c.JSON(http.StatusInternalServerError, errorResp)
			}
		}
	}
}
