package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/SUSTechPOINTS/boxeditor/internal/session"

type metrics struct {
	renders   metric.Int64Counter
	saves     metric.Int64Counter
	transfers metric.Int64Counter
	stale     metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var err error
	out := &metrics{}

	out.renders, err = m.Int64Counter("session.renders",
		metric.WithDescription("Render passes issued by the editor pool"))
	if err != nil {
		return nil, fmt.Errorf("creating render counter: %w", err)
	}

	out.saves, err = m.Int64Counter("session.saves",
		metric.WithDescription("Save chains by result"))
	if err != nil {
		return nil, fmt.Errorf("creating save counter: %w", err)
	}

	out.transfers, err = m.Int64Counter("session.transfers",
		metric.WithDescription("Interpolation transfers by result"))
	if err != nil {
		return nil, fmt.Errorf("creating transfer counter: %w", err)
	}

	out.stale, err = m.Int64Counter("session.stale_callbacks",
		metric.WithDescription("Async completions discarded because their session was superseded"))
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}

	return out, nil
}

func result(err error) metric.AddOption {
	if err != nil {
		return metric.WithAttributes(attribute.String("result", "error"))
	}
	return metric.WithAttributes(attribute.String("result", "ok"))
}

func (m *metrics) render() {
	m.renders.Add(context.Background(), 1)
}

func (m *metrics) save(err error) {
	m.saves.Add(context.Background(), 1, result(err))
}

func (m *metrics) transfer(err error) {
	m.transfers.Add(context.Background(), 1, result(err))
}

func (m *metrics) staleCallback(op string) {
	m.stale.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
}
