package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection pool snapshot reported by /health/db.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// HealthSource is what the health handler needs from a pool.
type HealthSource interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

type poolHealth struct{ pool *pgxpool.Pool }

// NewPoolHealth adapts a pgx pool to HealthSource.
func NewPoolHealth(pool *pgxpool.Pool) HealthSource { return poolHealth{pool: pool} }

func (p poolHealth) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p poolHealth) Stats() *PoolStats {
	stat := p.pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// HealthHandler pings the database and reports pool statistics.
func HealthHandler(src HealthSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := src.Stats()
		if err := src.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"status":  "unhealthy",
				"message": err.Error(),
				"pool":    stats,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  "healthy",
			"pool":    stats,
		})
	}
}
