package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Metrics serves the default Prometheus registry, adding connection pool
// statistics for db.
func Metrics(db *gorm.DB) gin.HandlerFunc {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			err := prometheus.Register(collectors.NewDBStatsCollector(sqlDB, "onboardhub"))
			var already prometheus.AlreadyRegisteredError
			if err != nil && !errors.As(err, &already) {
				logger.Warn().Err(err).Msg("Failed to register DB stats collector")
			}
		}
	}
	return gin.WrapH(promhttp.Handler())
}
