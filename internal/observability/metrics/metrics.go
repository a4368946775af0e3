package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	rowsIngested     metric.Int64Counter
	uploadsFailed    metric.Int64Counter
	suggestions      metric.Int64Counter
	ledgerLines      metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "ledgerline"
	}
	meter := provider.Meter(name)

	rowsIngested, err := meter.Int64Counter("ledgerline_rows_ingested_total")
	if err != nil {
		return nil, err
	}
	uploadsFailed, err := meter.Int64Counter("ledgerline_uploads_failed_total")
	if err != nil {
		return nil, err
	}
	suggestions, err := meter.Int64Counter("ledgerline_suggestions_total")
	if err != nil {
		return nil, err
	}
	ledgerLines, err := meter.Int64Counter("ledgerline_ledger_lines_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("ledgerline_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("ledgerline_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		rowsIngested:     rowsIngested,
		uploadsFailed:    uploadsFailed,
		suggestions:      suggestions,
		ledgerLines:      ledgerLines,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordRowsIngested increments ingest row counts per upload kind.
func (m *Metrics) RecordRowsIngested(ctx context.Context, uploadKind string, rows int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("upload_kind", strings.TrimSpace(uploadKind)))
	m.rowsIngested.Add(ctx, rows, metric.WithAttributes(attrs...))
}

// RecordUploadFailed increments failed upload counts.
func (m *Metrics) RecordUploadFailed(ctx context.Context, uploadKind, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("upload_kind", strings.TrimSpace(uploadKind)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.uploadsFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSuggestion increments served suggestion counts.
func (m *Metrics) RecordSuggestion(ctx context.Context, matched bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if matched {
		outcome = "hit"
	}
	attrs := FilterAttributes(attribute.String("outcome", outcome))
	m.suggestions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerLine increments appended ledger line counts.
func (m *Metrics) RecordLedgerLine(ctx context.Context, lineType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("line_type", strings.TrimSpace(lineType)))
	m.ledgerLines.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, companyID, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("company_id", strings.TrimSpace(companyID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, companyID, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("company_id", strings.TrimSpace(companyID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"company_id":  {},
	"endpoint":    {},
	"upload_kind": {},
	"line_type":   {},
	"outcome":     {},
	"reason":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
