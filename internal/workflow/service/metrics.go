package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/service"

// engineMetrics holds the approval engine instruments. With no meter provider
// installed the global provider is a no-op.
type engineMetrics struct {
	submitted metric.Int64Counter
	actions   metric.Int64Counter
	completed metric.Int64Counter
	retries   metric.Int64Counter
}

func newEngineMetrics() *engineMetrics {
	meter := otel.Meter(meterName)
	m := &engineMetrics{}

	var err error
	if m.submitted, err = meter.Int64Counter("approval.requests.submitted",
		metric.WithDescription("Approval requests created")); err != nil {
		slog.Warn("failed to create metric", "name", "approval.requests.submitted", "error", err)
	}
	if m.actions, err = meter.Int64Counter("approval.actions",
		metric.WithDescription("Approver actions recorded")); err != nil {
		slog.Warn("failed to create metric", "name", "approval.actions", "error", err)
	}
	if m.completed, err = meter.Int64Counter("approval.requests.completed",
		metric.WithDescription("Approval requests that reached a terminal status")); err != nil {
		slog.Warn("failed to create metric", "name", "approval.requests.completed", "error", err)
	}
	if m.retries, err = meter.Int64Counter("approval.act.retries",
		metric.WithDescription("Act attempts retried after a concurrent modification")); err != nil {
		slog.Warn("failed to create metric", "name", "approval.act.retries", "error", err)
	}
	return m
}

func inc(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}
