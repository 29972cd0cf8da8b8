package main

import (
	"context"

	"github.com/trovemart/commerce/internal/config"
	"github.com/trovemart/commerce/internal/fulfillment"
	"github.com/trovemart/commerce/internal/order"
	"github.com/trovemart/commerce/internal/telemetry"
	"github.com/trovemart/commerce/pkg/shiprocket"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

func initFulfillment(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *fulfillment.Service {
	carrier := shiprocket.New(shiprocket.Config{
		Email:       cfg.ShiprocketEmail,
		Password:    cfg.ShiprocketPassword,
		BaseURL:     cfg.ShiprocketBaseURL,
		AuthTimeout: cfg.ShiprocketAuthTimeout,
		Timeout:     cfg.ShiprocketTimeout,
		Token: shiprocket.TokenManagerConfig{
			Validity: cfg.ShiprocketTokenValidity,
			Margin:   cfg.ShiprocketTokenMargin,
			Cooldown: cfg.ShiprocketAuthCooldown,
		},
		UseMock: cfg.ShiprocketUseMock,
	}, logger, tracer)

	// The order store is a collaborator port; the default wiring keeps an
	// in-memory store so the service runs standalone.
	orders := order.NewMemoryStore()

	metrics := telemetry.NewMetrics()
	return fulfillment.NewService(orders, carrier, cfg.ShiprocketPickupLocation, logger, metrics)
}
