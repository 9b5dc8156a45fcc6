// Package telemetry traces multi-step engine operations. An operation is
// a root span that announces its step plan up front, so output layers can
// render progress for steps that have not started yet.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	PlanEventName  = "vigil.plan"
	PlanVersion    = "1"
	PlanVersionKey = "vigil.plan.version"
	PlanJSONKey    = "vigil.plan.json"
)

// PlannedStep is one step announced before any step runs. ParentID nests
// a step under another planned step.
type PlannedStep struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Title    string `json:"title"`
}

type Plan struct {
	Steps []PlannedStep `json:"steps"`
}

// Operation is a live root span; steps run as its child spans.
type Operation struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// EmitPlan validates the plan, opens the root span, and attaches the plan
// both as span attributes and as an event.
func EmitPlan(ctx context.Context, tracer trace.Tracer, operation string, plan Plan) (*Operation, error) {
	if tracer == nil {
		return nil, fmt.Errorf("emit plan: tracer is required")
	}
	if err := plan.validate(); err != nil {
		return nil, fmt.Errorf("emit plan: %w", err)
	}
	if operation = strings.TrimSpace(operation); operation == "" {
		operation = "operation"
	}

	encoded, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("emit plan: marshal: %w", err)
	}
	attrs := []attribute.KeyValue{
		attribute.String(PlanVersionKey, PlanVersion),
		attribute.String(PlanJSONKey, string(encoded)),
	}

	spanCtx, span := tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	span.AddEvent(PlanEventName, trace.WithAttributes(attrs...))
	return &Operation{ctx: spanCtx, tracer: tracer, span: span}, nil
}

// Context returns the root span context for code between steps.
func (o *Operation) Context() context.Context {
	if o == nil || o.ctx == nil {
		return context.Background()
	}
	return o.ctx
}

// RunStep runs fn inside a child span named id. A returned error is
// recorded on the span and passed through unchanged.
func (o *Operation) RunStep(ctx context.Context, id string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("run step: id is required")
	}
	if o == nil || o.tracer == nil {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = o.Context()
	}

	stepCtx, span := o.tracer.Start(ctx, id)
	defer span.End()

	if err := fn(stepCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// End closes the root span, marking it failed when err is non-nil.
func (o *Operation) End(err error) {
	if o == nil || o.span == nil {
		return
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.span.End()
}

func (p Plan) validate() error {
	ids := make(map[string]bool, len(p.Steps))
	for i, step := range p.Steps {
		id := strings.TrimSpace(step.ID)
		switch {
		case id == "":
			return fmt.Errorf("step %d has empty id", i)
		case ids[id]:
			return fmt.Errorf("duplicate step id %q", id)
		}
		ids[id] = true
	}
	for i, step := range p.Steps {
		parent := strings.TrimSpace(step.ParentID)
		if parent != "" && !ids[parent] {
			return fmt.Errorf("step %d parent %q not in plan", i, parent)
		}
	}
	return nil
}
