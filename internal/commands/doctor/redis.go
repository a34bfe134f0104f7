package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/hay-kot/shoppulse/internal/core/config"
	"github.com/hay-kot/shoppulse/internal/store/redisfeed"
)

const redisTimeout = 3 * time.Second

// RedisCheck pings the relay's Redis server when one is configured.
type RedisCheck struct {
	cfg config.RedisConfig
}

// NewRedisCheck creates a Redis connectivity check.
func NewRedisCheck(cfg config.RedisConfig) *RedisCheck {
	return &RedisCheck{cfg: cfg}
}

func (c *RedisCheck) Name() string {
	return "Redis relay"
}

func (c *RedisCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if !c.cfg.Enabled() {
		result.Items = append(result.Items, CheckItem{
			Label:  "Relay",
			Status: StatusPass,
			Detail: "not configured",
		})
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	rc, err := redisfeed.Dial(ctx, c.cfg.Addr, c.cfg.Password, c.cfg.DB)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Connection",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}
	defer rc.Close() //nolint:errcheck

	result.Items = append(result.Items, CheckItem{
		Label:  "Connection",
		Status: StatusPass,
		Detail: c.cfg.Addr,
	})

	snap, err := redisfeed.Latest(ctx, rc, c.cfg.LatestKey)
	switch {
	case errors.Is(err, redisfeed.ErrNoSnapshot):
		result.Items = append(result.Items, CheckItem{
			Label:  "Latest snapshot",
			Status: StatusWarn,
			Detail: "nothing published yet",
		})
	case err != nil:
		result.Items = append(result.Items, CheckItem{
			Label:  "Latest snapshot",
			Status: StatusFail,
			Detail: err.Error(),
		})
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "Latest snapshot",
			Status: StatusPass,
			Detail: "updated " + snap.LastUpdated.Format(time.RFC3339),
		})
	}

	return result
}
