package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlplog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/ipos-browser-go/pkg/config"
	"github.com/denysvitali/ipos-browser-go/version"
)

// ServiceName is the instrumentation scope and resource service name
const ServiceName = "ipos-browser"

// Tracer returns the tracer shared by the session and the gateway
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// Initialize sets up OpenTelemetry tracing and logging using autoexport.
// The returned function flushes and shuts down both providers.
func Initialize(cfg config.TelemetryConfig, logger *logrus.Logger) (func(), error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(version.Version),
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

	if cfg.Endpoint != "" {
		logger.Infof("Exporting telemetry to %s", cfg.Endpoint)
	}

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

// ReportJSON records a payload as a span event and as a debug log entry
func ReportJSON(ctx context.Context, logger *logrus.Logger, operation string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Errorf("Failed to marshal %s payload: %v", operation, err)
		return
	}

	trace.SpanFromContext(ctx).AddEvent(operation, trace.WithAttributes(
		attribute.String("json.data", string(jsonData)),
		attribute.String("data.type", dataType(data)),
	))

	logger.WithFields(logrus.Fields{
		"operation": operation,
		"json_data": string(jsonData),
		"data_type": dataType(data),
	}).Debug("Payload reported")

	var record otlplog.Record
	record.SetTimestamp(time.Now())
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(otlplog.SeverityDebug)
	record.SetSeverityText("DEBUG")
	record.SetBody(otlplog.StringValue(string(jsonData)))
	record.AddAttributes(otlplog.String("operation", operation))
	global.GetLoggerProvider().Logger(ServiceName).Emit(ctx, record)
}

func dataType(data interface{}) string {
	switch data.(type) {
	case map[string]interface{}:
		return "map"
	case []interface{}, []string:
		return "array"
	case string:
		return "string"
	case nil:
		return "null"
	default:
		return "object"
	}
}
