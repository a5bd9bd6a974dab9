package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows every origin. Preflight requests are answered with an empty 200.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:              []string{"*"},
		AllowMethods:              []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Request-ID", "apikey", "x-client-info"},
		ExposeHeaders:             []string{"Content-Length", "X-Request-ID"},
		AllowCredentials:          true,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	})
}
