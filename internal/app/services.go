package app

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/retailhq/headoffice/internal/crm"
	"github.com/retailhq/headoffice/internal/dashboard"
	"github.com/retailhq/headoffice/internal/exceptions"
	"github.com/retailhq/headoffice/internal/inventory"
	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/posaudit"
	"github.com/retailhq/headoffice/internal/sales"
	"github.com/retailhq/headoffice/internal/upstream"
	"github.com/retailhq/headoffice/internal/vendors"
)

// Services is the set of report services shared by the server and the worker.
type Services struct {
	API        *upstream.Client
	Cache      *cache.Versioned
	Sales      *sales.Service
	Inventory  *inventory.Service
	CRM        *crm.Service
	Exceptions *exceptions.Service
	Vendors    *vendors.Service
	POSAudit   *posaudit.Service
	Composer   *dashboard.Composer
}

// NewServices wires the API client, the report cache and every report service.
func NewServices(cfg *Config, client *redis.Client, logger *slog.Logger, registerer prometheus.Registerer) (*Services, error) {
	api, err := upstream.NewClient(upstream.Options{
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout,
		Logger:  logger,
		Metrics: upstream.NewMetrics(registerer),
	})
	if err != nil {
		return nil, err
	}
	reportCache := cache.NewVersioned(client, cfg.CacheTTL, registerer)

	s := &Services{
		API:        api,
		Cache:      reportCache,
		Sales:      sales.NewService(api, reportCache, logger),
		Inventory:  inventory.NewService(api, reportCache, logger),
		CRM:        crm.NewService(api, reportCache, logger),
		Exceptions: exceptions.NewService(api, reportCache, logger),
		Vendors:    vendors.NewService(api, reportCache, logger),
		POSAudit:   posaudit.NewService(api, reportCache, logger),
	}
	s.Composer = dashboard.NewComposer(s.Sales, s.Exceptions, s.Vendors, dashboard.DefaultTopVendors, logger)
	return s, nil
}
