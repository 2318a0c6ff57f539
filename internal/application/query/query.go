// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED QUERY INFRASTRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

var (
	tracer   = otel.Tracer("snapclash/application/query")
	validate = validator.New()
)

// Recorder собирает метрики выполнения запросов.
// Реализация на Prometheus находится в infrastructure/metrics.
type Recorder interface {
	ObserveQuery(name string, duration time.Duration, err error)
	ObserveCache(view string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveQuery(string, time.Duration, error) {}
func (nopRecorder) ObserveCache(string, bool)                 {}

// NopRecorder возвращает Recorder, который ничего не делает.
func NopRecorder() Recorder { return nopRecorder{} }

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// observation объединяет span, метрики и лог одного выполнения запроса.
type observation struct {
	name  string
	span  trace.Span
	rec   Recorder
	start time.Time
}

func observe(ctx context.Context, rec Recorder, name string, attrs ...attribute.KeyValue) (context.Context, *observation) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &observation{name: name, span: span, rec: orNop(rec), start: time.Now()}
}

// end закрывает span и пишет метрику. err передаётся по указателю, чтобы
// вызывать end через defer с именованным результатом.
func (o *observation) end(ctx context.Context, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}

	duration := time.Since(o.start)
	o.rec.ObserveQuery(o.name, duration, err)

	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		if !shared.IsValidation(err) && !shared.IsNotFound(err) {
			logger.FromContext(ctx).Error("query failed",
				logger.Operation(o.name), logger.Latency(duration), logger.Err(err))
		}
	} else {
		o.span.SetStatus(codes.Ok, "")
	}
	o.span.End()
}

// sharedBuildTimeout ограничивает общую сборку лидерборда, которая
// больше не зависит от отмены запроса-инициатора.
const sharedBuildTimeout = 30 * time.Second

// shareBuild выполняет build один раз на ключ для всех одновременных
// вызовов. Сборка идёт в контексте без отмены (значения контекста
// сохраняются), поэтому отмена одного вызова не роняет остальных.
// Каждый вызов перестаёт ждать, когда завершается его собственный ctx.
func shareBuild[T any](ctx context.Context, group *singleflight.Group, key string, build func(context.Context) (T, error)) (T, error) {
	ch := group.DoChan(key, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedBuildTimeout)
		defer cancel()
		return build(bctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// validationError оборачивает ошибку validator в доменную ошибку валидации.
func validationError(op string, err error) error {
	return shared.WrapError("query", op, shared.ErrValidation, "invalid query", err)
}

// fetchError оборачивает ошибку чтения из хранилища.
func fetchError(op, what string, err error) error {
	return shared.WrapError("query", op, shared.ErrServiceUnavailable, "failed to load "+what, err)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
