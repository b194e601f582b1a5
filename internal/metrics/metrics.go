// Package metrics exposes the size of a mapping run as Prometheus gauges.
//
// The CLI is a batch job, so gauges are written to a node-exporter textfile
// rather than served over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rxnmap/internal/aggregate"
	"github.com/roach88/rxnmap/internal/ir"
)

const namespace = "rxnmap"

// Recorder holds the run gauges on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	tierReactions *prometheus.GaugeVec
	tierClauses   *prometheus.GaugeVec
	pending       *prometheus.GaugeVec
	issues        *prometheus.GaugeVec
	canonical     prometheus.Gauge
}

// NewRecorder creates a Recorder and registers its gauges.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tierReactions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier_reactions",
			Help:      "Reactions resolved by each tier.",
		}, []string{"tier"}),
		tierClauses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier_clauses",
			Help:      "Clauses contributed by each tier.",
		}, []string{"tier"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_reactions",
			Help:      "Reactions waiting for a curated rule, per tier.",
		}, []string{"tier"}),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "issues",
			Help:      "Issues raised during the run, per kind.",
		}, []string{"kind"}),
		canonical: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "canonical_reactions",
			Help:      "Reactions in the canonical mapping.",
		}),
	}
	r.registry.MustRegister(r.tierReactions, r.tierClauses, r.pending, r.issues, r.canonical)
	return r
}

// Registry returns the registry holding the gauges.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe sets every gauge from report. Tiers are always present so that a
// tier dropping to zero is visible.
func (r *Recorder) Observe(report *aggregate.Report) {
	r.issues.Reset()

	pendingByTier := make(map[ir.Tier]map[ir.Identifier]struct{})
	for _, p := range report.Pending {
		if pendingByTier[p.Tier] == nil {
			pendingByTier[p.Tier] = make(map[ir.Identifier]struct{})
		}
		pendingByTier[p.Tier][p.Reaction] = struct{}{}
	}

	for _, tier := range ir.AllTiers {
		rules := report.Tiers[tier]
		r.tierReactions.WithLabelValues(string(tier)).Set(float64(len(rules)))
		r.tierClauses.WithLabelValues(string(tier)).Set(float64(rules.ClauseCount()))
		if tier.Curated() {
			r.pending.WithLabelValues(string(tier)).Set(float64(len(pendingByTier[tier])))
		}
	}
	for kind, n := range ir.CountIssues(report.Issues) {
		r.issues.WithLabelValues(string(kind)).Set(float64(n))
	}
	r.canonical.Set(float64(report.Mapping.Len()))
}

// WriteTextfile writes the gauges in text exposition format to path,
// atomically replacing any previous file.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
