// Package metrics records onboarding outcomes for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Onboarding paths.
const (
	PathSignUp      = "sign_up"
	PathSignIn      = "sign_in"
	PathReselection = "reselection"
)

// Recorder is used by the service layer.
type Recorder interface {
	ProbeResult(result string)
	OnboardingPath(path string)
	Confirmation(outcome string)
	Reconciliation(outcome string)
	CompanyCreated()
	DomainConflict()
}

// Noop discards every observation.
type Noop struct{}

func (Noop) ProbeResult(string)    {}
func (Noop) OnboardingPath(string) {}
func (Noop) Confirmation(string)   {}
func (Noop) Reconciliation(string) {}
func (Noop) CompanyCreated()       {}
func (Noop) DomainConflict()       {}

var _ Recorder = (*Collector)(nil)

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	probe          *prometheus.CounterVec
	path           *prometheus.CounterVec
	confirmation   *prometheus.CounterVec
	reconciliation *prometheus.CounterVec
	companies      prometheus.Counter
	conflicts      prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		probe: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_probe_total",
			Help: "Account existence probes by result.",
		}, []string{"result"}),
		path: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_path_total",
			Help: "Challenges issued by onboarding path.",
		}, []string{"path"}),
		confirmation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_confirmation_total",
			Help: "One-time code confirmations by outcome.",
		}, []string{"outcome"}),
		reconciliation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_reconciliation_total",
			Help: "Account reconciliations by outcome.",
		}, []string{"outcome"}),
		companies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_companies_created_total",
			Help: "Companies created during reconciliation.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_domain_conflicts_total",
			Help: "Company creations lost to a concurrent insert for the same domain.",
		}),
	}

	reg.MustRegister(
		c.probe,
		c.path,
		c.confirmation,
		c.reconciliation,
		c.companies,
		c.conflicts,
	)

	return c
}

func (c *Collector) ProbeResult(result string) {
	c.probe.WithLabelValues(result).Inc()
}

func (c *Collector) OnboardingPath(path string) {
	c.path.WithLabelValues(path).Inc()
}

func (c *Collector) Confirmation(outcome string) {
	c.confirmation.WithLabelValues(outcome).Inc()
}

func (c *Collector) Reconciliation(outcome string) {
	c.reconciliation.WithLabelValues(outcome).Inc()
}

func (c *Collector) CompanyCreated() {
	c.companies.Inc()
}

func (c *Collector) DomainConflict() {
	c.conflicts.Inc()
}

// Handler serves the /metrics endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
