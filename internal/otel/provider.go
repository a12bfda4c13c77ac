// Package otel owns the OpenTelemetry log pipeline for a session.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when OTel is enabled without any destination.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

// Config holds OTel configuration
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // receives pretty-printed records when set
	Endpoint     string    // OTLP/HTTP endpoint, optional
	Insecure     bool
}

// Provider manages the OTel log provider
type Provider struct {
	logProvider *sdklog.LoggerProvider
	config      Config
}

// New creates a provider. A disabled config yields a provider with no log pipeline.
func New(cfg Config) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporters, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)),
		))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)

	return p, nil
}

func newExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var exporters []sdklog.Exporter

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if len(exporters) == 0 {
		return nil, ErrNoExporter
	}
	return exporters, nil
}

// Enabled reports whether a log pipeline is running.
func (p *Provider) Enabled() bool {
	return p.logProvider != nil
}

// LoggerProvider returns the log provider for the otelslog bridge, nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns the global meter when enabled and a no-op meter otherwise.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.Enabled() {
		return noop.Meter{}
	}
	return otel.Meter(name)
}

// Flush forces a flush of all pending logs, e.g. after a document save.
func (p *Provider) Flush(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the pipeline. Call once on exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}
