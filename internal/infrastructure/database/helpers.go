package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Close closes the pool. Calling it on a closed or never opened pool is a no-op.
func (db *PostgresDB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.gen++
	if db.pool == nil {
		return
	}

	log.Info().Msg("[DATABASE] Closing connection pool...")
	db.pool.Close()
	db.pool = nil
	log.Info().Msg("[DATABASE] Connection pool closed")
}

// PoolStats is a snapshot of the pool counters, exposed by the health endpoint.
type PoolStats struct {
	TotalConns           int32         `json:"total_conns"`
	AcquiredConns        int32         `json:"acquired_conns"`
	IdleConns            int32         `json:"idle_conns"`
	MaxConns             int32         `json:"max_conns"`
	AcquireCount         int64         `json:"acquire_count"`
	CanceledAcquireCount int64         `json:"canceled_acquire_count"`
	AvgAcquireDuration   time.Duration `json:"avg_acquire_duration"`
}

// Stats returns pool statistics, or an error when the pool is not open.
func (db *PostgresDB) Stats() (*PoolStats, error) {
	db.mu.Lock()
	pool := db.pool
	db.mu.Unlock()

	if pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := pool.Stat()
	return &PoolStats{
		TotalConns:           raw.TotalConns(),
		AcquiredConns:        raw.AcquiredConns(),
		IdleConns:            raw.IdleConns(),
		MaxConns:             raw.MaxConns(),
		AcquireCount:         raw.AcquireCount(),
		CanceledAcquireCount: raw.CanceledAcquireCount(),
		AvgAcquireDuration:   calculateAvgDuration(raw.AcquireDuration(), raw.AcquireCount()),
	}, nil
}

func calculateAvgDuration(totalDuration time.Duration, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return totalDuration / time.Duration(count)
}

// MonitorPoolHealth logs pool saturation warnings until ctx is cancelled.
// Run it in its own goroutine.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				// not opened yet
				continue
			}

			if stats.MaxConns > 0 {
				utilization := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
				if utilization > 80 {
					log.Warn().
						Float64("utilization_pct", utilization).
						Int32("acquired", stats.AcquiredConns).
						Int32("max", stats.MaxConns).
						Msg("[MONITOR] High pool utilization")
				}
			}

			if stats.AvgAcquireDuration > 100*time.Millisecond {
				log.Warn().Dur("avg_acquire", stats.AvgAcquireDuration).Msg("[MONITOR] High acquire latency")
			}

		case <-ctx.Done():
			log.Info().Msg("[MONITOR] Stopping pool health monitoring")
			return
		}
	}
}
