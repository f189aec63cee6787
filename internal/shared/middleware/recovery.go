package middleware

import (
	"net/http"
	"runtime/debug"

	"familytree-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Interface("error", err).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered")

				response.Error(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
			}
		}()

		c.Next()
	}
}
