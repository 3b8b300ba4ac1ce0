// Package agent implements the zmtalon collection cycle and the loop that
// runs it on a fixed period.
package agent

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"

	zmerr "github.com/vesaa/zmtalon/internal/errors"
	"github.com/vesaa/zmtalon/internal/metrics"
	"github.com/vesaa/zmtalon/internal/models"
	"github.com/vesaa/zmtalon/internal/zoneminder"
)

// TokenSource yields an access token for each cycle.
type TokenSource interface {
	EnsureValidAccessToken(ctx context.Context) (string, error)
	Relogin(ctx context.Context) error
}

// MonitorFetcher lists the server's monitors.
type MonitorFetcher interface {
	FetchMonitors(ctx context.Context, accessToken string) (zoneminder.MonitorList, error)
}

// Collector runs one collection cycle: token -> monitors -> reconcile.
type Collector struct {
	tokens   TokenSource
	monitors MonitorFetcher
	registry *metrics.Registry
	log      *zap.SugaredLogger

	// storagePath, when set, adds host filesystem usage of that path.
	storagePath string
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithStoragePath reports filesystem usage of path as storage_used_percent.
func WithStoragePath(path string) CollectorOption {
	return func(c *Collector) { c.storagePath = path }
}

// NewCollector creates a ready-to-use Collector. registry is shared with
// whatever renders the series and must outlive every cycle.
func NewCollector(tokens TokenSource, monitors MonitorFetcher, registry *metrics.Registry, log *zap.SugaredLogger, opts ...CollectorOption) *Collector {
	c := &Collector{
		tokens:   tokens,
		monitors: monitors,
		registry: registry,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the series registry the collector grows.
func (c *Collector) Registry() *metrics.Registry { return c.registry }

// CollectOnce runs a single cycle. Any stage error aborts the cycle with no
// data; nothing is retried within the cycle. A token persistence failure is
// logged and does not abort.
func (c *Collector) CollectOnce(ctx context.Context) (models.Metrics, error) {
	token, err := c.tokens.EnsureValidAccessToken(ctx)
	if err != nil {
		if !zmerr.IsCode(err, zmerr.CodePersist) || token == "" {
			return nil, err
		}
		c.log.Warnw("token pair not persisted, using it for this cycle", "error", err)
	}

	list, err := c.monitors.FetchMonitors(ctx, token)
	if err != nil {
		if zmerr.IsCode(err, zmerr.CodeRevoked) {
			c.log.Debug("token was revoked, generating new tokens, will try to collect data in next run")
			if rerr := c.tokens.Relogin(ctx); rerr != nil && !zmerr.IsCode(rerr, zmerr.CodePersist) {
				c.log.Debugw("re-login after revocation failed", "error", rerr)
			}
		}
		return nil, err
	}

	out := metrics.Reconcile(list.Monitors, c.registry)

	if c.storagePath != "" {
		usage, err := disk.UsageWithContext(ctx, c.storagePath)
		if err != nil {
			c.log.Warnw("cannot read storage usage", "path", c.storagePath, "error", err)
		} else {
			out[metrics.StorageUsedMetric] = usage.UsedPercent
		}
	}

	return out, nil
}
