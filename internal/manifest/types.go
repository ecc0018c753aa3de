package manifest

import (
	"github.com/halcyonops/halcyon/internal/alert"
	"github.com/halcyonops/halcyon/internal/gate"
	"github.com/halcyonops/halcyon/internal/slo"
)

// Manifest is a parsed service manifest.
type Manifest struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata identifies the service the manifest describes.
type Metadata struct {
	Service string `yaml:"service"`
	Tier    string `yaml:"tier"`
	Team    string `yaml:"team,omitempty"`
	Owner   string `yaml:"owner,omitempty"`
}

// Spec contains the service's reliability declaration.
type Spec struct {
	Environment string           `yaml:"environment"`
	SLOs        []slo.SLO        `yaml:"slos"`
	Alerting    Alerting         `yaml:"alerting,omitempty"`
	GatePolicy  *gate.Policy     `yaml:"gatePolicy,omitempty"`
	Downstream  []gate.ServiceRef `yaml:"downstream,omitempty"`

	// EvaluationInterval controls how often the scheduler re-evaluates
	// this service, e.g. "5m".
	EvaluationInterval string `yaml:"evaluationInterval,omitempty"`
}

// Alerting configures rule sources for a service. AutoRules opts in to
// the tier-default rule set; explicit rules are appended after it.
type Alerting struct {
	AutoRules bool          `yaml:"autoRules,omitempty"`
	Rules     []alert.Rule  `yaml:"rules,omitempty"`
	Channels  []ChannelSpec `yaml:"channels,omitempty"`
}

// ChannelSpec declares a notification channel.
type ChannelSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "webhook" or "log"
	URL  string `yaml:"url,omitempty"`
}

// WithFile pairs a manifest with its source file path.
type WithFile struct {
	Manifest *Manifest
	File     string
}

// ValidationError represents a validation error for a specific file
type ValidationError struct {
	File    string
	Path    string
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Path != "" {
		return e.File + ": " + e.Path + ": " + e.Message
	}
	return e.File + ": " + e.Message
}

// SLOs returns the manifest's SLOs with the service field filled in.
func (m *Manifest) SLOs() []*slo.SLO {
	slos := make([]*slo.SLO, 0, len(m.Spec.SLOs))
	for i := range m.Spec.SLOs {
		s := m.Spec.SLOs[i]
		if s.Service == "" {
			s.Service = m.Metadata.Service
		}
		slos = append(slos, &s)
	}
	return slos
}

// Rules returns the service's effective alert rules: the tier-default
// set when autoRules is on, followed by any explicit rules.
func (m *Manifest) Rules() []alert.Rule {
	var rules []alert.Rule
	if m.Spec.Alerting.AutoRules {
		rules = alert.DefaultRulesForTier(m.Metadata.Service, m.Metadata.Tier)
	}
	for _, r := range m.Spec.Alerting.Rules {
		if r.Service == "" {
			r.Service = m.Metadata.Service
		}
		if r.SLOID == "" {
			r.SLOID = "*"
		}
		rules = append(rules, r)
	}
	return rules
}

// DownstreamNames returns the declared downstream service names.
func (m *Manifest) DownstreamNames() []string {
	names := make([]string, 0, len(m.Spec.Downstream))
	for _, ref := range m.Spec.Downstream {
		names = append(names, ref.Name)
	}
	return names
}
