package otel

import (
	"context"
	"errors"
	"fmt"

	goProof "github.com/MrEthical07/goProof"
	"github.com/MrEthical07/goProof/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goProof.MetricsSnapshot
	AuditDropped() uint64
}

// replaySizer is implemented by *goProof.Engine.
type replaySizer interface {
	RedeemedCount(ctx context.Context) (int, error)
}

type observedCounter struct {
	id         goProof.MetricID
	instrument metric.Int64ObservableCounter
}

type observedOutcome struct {
	id    goProof.MetricID
	attrs metric.MeasurementOption
}

// observedLatency exposes one fixed-bucket histogram as a cumulative gauge
// keyed by the "le" attribute plus a sample count.
type observedLatency struct {
	id      goProof.MetricID
	buckets metric.Int64ObservableGauge
	bounds  []metric.MeasurementOption
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine counters as observable instruments. Values
// are read from the engine once per collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	counters []observedCounter
	latency  []observedLatency

	outcomes       metric.Int64ObservableCounter
	outcomeSeries  []observedOutcome
	auditDropped   metric.Int64ObservableCounter
	replaySize     metric.Int64ObservableGauge
	replaySizeFrom replaySizer
}

// NewOTelExporter registers instruments on meter for engine. Call Close to
// unregister the callback.
func NewOTelExporter(meter metric.Meter, engine *goProof.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source. The
// replay size gauge is registered only when source can report it.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	outcomes, err := meter.Int64ObservableCounter(
		internaldefs.RedemptionOutcomeName,
		metric.WithDescription(internaldefs.RedemptionOutcomeHelp),
		metric.WithUnit("{redemption}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create redemption outcome counter: %w", err)
	}
	e.outcomes = outcomes
	for _, def := range internaldefs.RedemptionOutcomeDefs {
		e.outcomeSeries = append(e.outcomeSeries, observedOutcome{
			id:    def.ID,
			attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("outcome", def.Outcome))),
		})
	}
	observables = append(observables, outcomes)

	for _, def := range internaldefs.HistogramDefs {
		l := observedLatency{id: def.ID}
		l.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
			metric.WithUnit("{redemption}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create latency buckets %s: %w", def.Name, err)
		}
		for _, le := range internaldefs.HistogramBounds {
			l.bounds = append(l.bounds, metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le))))
		}
		l.count, err = meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
			metric.WithUnit("{redemption}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create latency count %s: %w", def.Name, err)
		}
		e.latency = append(e.latency, l)
		observables = append(observables, l.buckets, l.count)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.auditDropped)

	if sizer, ok := source.(replaySizer); ok {
		e.replaySize, err = meter.Int64ObservableGauge(
			internaldefs.ReplayIdentitiesName,
			metric.WithDescription(internaldefs.ReplayIdentitiesHelp),
			metric.WithUnit("{identity}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create replay size gauge: %w", err)
		}
		e.replaySizeFrom = sizer
		observables = append(observables, e.replaySize)
	}

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(ctx context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, s := range e.outcomeSeries {
		o.ObserveInt64(e.outcomes, int64(snapshot.Counters[s.id]), s.attrs)
	}
	for _, l := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, attrs := range l.bounds {
			o.ObserveInt64(l.buckets, int64(cumulative[i]), attrs)
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	if e.replaySizeFrom != nil {
		// a store that cannot answer is already counted as a storage failure
		if n, err := e.replaySizeFrom.RedeemedCount(ctx); err == nil {
			o.ObserveInt64(e.replaySize, int64(n))
		}
	}
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
