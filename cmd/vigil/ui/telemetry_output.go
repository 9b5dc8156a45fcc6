package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"vigil/pkg/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryOutput renders telemetry step spans as progress lines on stderr.
type TelemetryOutput struct {
	provider *sdktrace.TracerProvider
}

func NewTelemetryOutput() *TelemetryOutput {
	printer := newStepPrinter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&stepSpanProcessor{printer: printer}))
	return &TelemetryOutput{provider: provider}
}

func (o *TelemetryOutput) Tracer(name string) trace.Tracer {
	if o == nil || o.provider == nil {
		return otel.Tracer(name)
	}
	return o.provider.Tracer(name)
}

func (o *TelemetryOutput) Close() {
	if o == nil || o.provider == nil {
		return
	}
	_ = o.provider.Shutdown(context.Background())
}

type stepPrinter struct {
	mu     sync.Mutex
	titles map[string]string
}

func newStepPrinter() *stepPrinter {
	return &stepPrinter{titles: make(map[string]string)}
}

func (p *stepPrinter) onPlan(plan telemetry.Plan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, step := range plan.Steps {
		stepID := strings.TrimSpace(step.ID)
		if stepID == "" {
			continue
		}
		title := strings.TrimSpace(step.Title)
		if title == "" {
			title = stepID
		}
		p.titles[stepID] = title
	}
}

func (p *stepPrinter) onStepStart(stepID string) {
	fmt.Fprintln(os.Stderr, "  "+MutedStyle.Render("[->]")+" "+p.title(stepID))
}

func (p *stepPrinter) onStepEnd(stepID string, failed bool, message string) {
	if failed {
		line := "  " + ErrorStyle.Render("[x]") + " " + p.title(stepID)
		if message != "" {
			line += " (" + message + ")"
		}
		fmt.Fprintln(os.Stderr, line)
		return
	}
	fmt.Fprintln(os.Stderr, "  "+SuccessStyle.Render("[ok]")+" "+p.title(stepID))
}

func (p *stepPrinter) title(stepID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if title, ok := p.titles[stepID]; ok {
		return title
	}
	return stepID
}

type stepSpanProcessor struct {
	printer *stepPrinter
}

func (sp *stepSpanProcessor) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	if sp == nil || sp.printer == nil {
		return
	}

	if span.Parent().IsValid() {
		sp.printer.onStepStart(span.Name())
		return
	}

	planJSON := attributeValue(span.Attributes(), telemetry.PlanJSONKey)
	if strings.TrimSpace(planJSON) == "" {
		return
	}

	var plan telemetry.Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return
	}
	sp.printer.onPlan(plan)
}

func (sp *stepSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	if sp == nil || sp.printer == nil {
		return
	}
	if !span.Parent().IsValid() {
		return
	}

	status := span.Status()
	failed := status.Code == codes.Error
	message := strings.TrimSpace(status.Description)
	sp.printer.onStepEnd(span.Name(), failed, message)
}

func (sp *stepSpanProcessor) Shutdown(context.Context) error {
	return nil
}

func (sp *stepSpanProcessor) ForceFlush(context.Context) error {
	return nil
}

func attributeValue(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}
