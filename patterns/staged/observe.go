package staged

import (
	"context"
	"time"

	"github.com/leofalp/stageflow/providers/observability"
)

// observer wraps an optional provider. A nil provider turns every method
// into a no-op.
type observer struct {
	provider observability.Provider
}

func (o observer) runStart(ctx context.Context, agents, phases int) (context.Context, observability.Span) {
	if o.provider == nil {
		return ctx, nil
	}
	ctx, span := o.provider.StartSpan(ctx, observability.SpanRun,
		observability.Int(observability.AttrRunAgents, agents),
		observability.Int(observability.AttrRunPhaseCount, phases),
	)
	ctx = observability.ContextWithObserver(ctx, o.provider)
	o.provider.Info(ctx, "run started",
		observability.Int(observability.AttrRunAgents, agents),
		observability.Int(observability.AttrRunPhaseCount, phases),
	)
	return ctx, span
}

func (o observer) runEnd(ctx context.Context, span observability.Span, err error, duration time.Duration) {
	if o.provider == nil {
		return
	}
	o.provider.Histogram(observability.MetricRunDuration).Record(ctx, duration.Seconds())
	if err != nil {
		o.provider.Error(ctx, "run aborted",
			observability.Error(err),
			observability.Duration(observability.AttrDuration, duration),
		)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "run aborted")
			span.End()
		}
		return
	}
	o.provider.Info(ctx, "run completed", observability.Duration(observability.AttrDuration, duration))
	if span != nil {
		span.SetStatus(observability.StatusOK, "run completed")
		span.End()
	}
}

func (o observer) phaseStart(ctx context.Context, phase float64, agents int) (context.Context, observability.Span) {
	if o.provider == nil {
		return ctx, nil
	}
	ctx, span := o.provider.StartSpan(ctx, observability.SpanPhase,
		observability.Float64(observability.AttrRunPhase, phase),
		observability.Int(observability.AttrRunAgents, agents),
	)
	o.provider.Debug(ctx, "phase started",
		observability.Float64(observability.AttrRunPhase, phase),
		observability.Int(observability.AttrRunAgents, agents),
	)
	return ctx, span
}

func (o observer) phaseEnd(ctx context.Context, span observability.Span, phase float64, failed int) {
	if o.provider == nil {
		return
	}
	o.provider.Debug(ctx, "phase finished",
		observability.Float64(observability.AttrRunPhase, phase),
		observability.Int("run.phase.failed", failed),
	)
	if span != nil {
		if failed > 0 {
			span.SetStatus(observability.StatusError, "phase had failed agents")
		} else {
			span.SetStatus(observability.StatusOK, "phase completed")
		}
		span.End()
	}
}

func (o observer) agentStart(ctx context.Context, nodeID, name string) (context.Context, observability.Span) {
	if o.provider == nil {
		return ctx, nil
	}
	ctx, span := o.provider.StartSpan(ctx, observability.SpanAgent,
		observability.String(observability.AttrAgentNodeID, nodeID),
		observability.String(observability.AttrAgentName, name),
	)
	return ctx, span
}

func (o observer) agentEnd(ctx context.Context, span observability.Span, output ExecutionOutput, err error, duration time.Duration) {
	if o.provider == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrAgentNodeID, output.NodeID),
		observability.String(observability.AttrAgentStatus, string(output.Status)),
	}
	o.provider.Histogram(observability.MetricAgentDuration).Record(ctx, duration.Seconds(), attrs...)

	if err != nil {
		o.provider.Counter(observability.MetricAgentFailed).Add(ctx, 1, attrs...)
		o.provider.Warn(ctx, "agent failed",
			observability.String(observability.AttrAgentName, output.Name),
			observability.Error(err),
			observability.Duration(observability.AttrDuration, duration),
		)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "agent failed")
			span.End()
		}
		return
	}

	o.provider.Counter(observability.MetricAgentCompleted).Add(ctx, 1, attrs...)
	o.provider.Debug(ctx, "agent completed",
		observability.String(observability.AttrAgentName, output.Name),
		observability.Int(observability.AttrAgentTextLength, len(output.Text)),
		observability.Duration(observability.AttrDuration, duration),
	)
	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrAgentTextLength, len(output.Text)))
		span.SetStatus(observability.StatusOK, "agent completed")
		span.End()
	}
}
