package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/denysvitali/minify-runner/pkg/config"
)

const serviceName = "minify-runner"

// Initialize sets up OpenTelemetry tracing and logging using autoexport
func Initialize(cfg config.TelemetryConfig, logger *logrus.Logger) (func(), error) {
	if cfg.Endpoint != "" && os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Endpoint)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	spanExporter, err := autoexport.NewSpanExporter(context.Background())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	logExporter, err := autoexport.NewLogExporter(context.Background())
	if err != nil {
		logger.Warnf("Failed to create log exporter: %v", err)
	}

	var logProvider *sdklog.LoggerProvider
	if logExporter != nil {
		logProvider = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(logProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(ctx); err != nil {
			logger.Errorf("Error shutting down tracer provider: %v", err)
		}

		if logProvider != nil {
			if err := logProvider.Shutdown(ctx); err != nil {
				logger.Errorf("Error shutting down log provider: %v", err)
			}
		}
	}, nil
}

// ReportJSON reports data as JSON in both traces and logs (debug level)
func ReportJSON(ctx context.Context, logger *logrus.Logger, operationName string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Errorf("Failed to marshal data to JSON: %v", err)
		return
	}

	_, span := otel.Tracer(serviceName).Start(ctx, operationName)
	span.SetAttributes(attribute.String("json.data", string(jsonData)))
	span.End()

	logger.WithFields(logrus.Fields{
		"operation": operationName,
		"json_data": string(jsonData),
	}).Debug("JSON data reported")

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(otellog.SeverityDebug)
	record.SetSeverityText("DEBUG")
	record.SetBody(otellog.StringValue(string(jsonData)))
	record.AddAttributes(otellog.String("operation", operationName))
	global.GetLoggerProvider().Logger(serviceName).Emit(ctx, record)
}
