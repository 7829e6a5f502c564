package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Setup installs a Jaeger tracer as the global tracer when tracing is
// enabled. The returned closer flushes buffered spans and is always safe to
// call.
func Setup(cfg config.TracingConfig, service string) (io.Closer, error) {
	if !cfg.Enabled {
		return io.NopCloser(nil), nil
	}

	sampler := &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1}
	if cfg.SampleRate > 0 && cfg.SampleRate < 1 {
		sampler = &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeProbabilistic, Param: cfg.SampleRate}
	}

	tcfg := &jaegercfg.Configuration{
		ServiceName: service,
		Sampler:     sampler,
		Reporter: &jaegercfg.ReporterConfig{
			CollectorEndpoint:   cfg.Endpoint,
			BufferFlushInterval: time.Second,
		},
	}

	tracer, closer, err := tcfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// Stage runs fn inside a span named "stage.<name>". Failures are tagged as
// errors; a cancelled run is tagged "cancelled" instead.
func Stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "stage."+name)
	defer span.Finish()
	span.SetTag("stage", name)

	err := fn(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		span.SetTag("cancelled", true)
	default:
		ext.Error.Set(span, true)
		span.LogKV("event", "error", "message", err.Error())
	}
	return err
}
