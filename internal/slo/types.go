package slo

import "time"

// WindowType distinguishes rolling windows from calendar-aligned ones.
type WindowType string

const (
	WindowRolling  WindowType = "rolling"
	WindowCalendar WindowType = "calendar"
)

// TimeWindow is the compliance window an SLO is measured over.
type TimeWindow struct {
	Duration string     `yaml:"duration" json:"duration"`
	Type     WindowType `yaml:"type" json:"type"`
}

// StartTime returns the start of the window ending at end.
// Rolling windows look back exactly Duration; calendar windows start
// at midnight UTC of the day end falls on.
func (w TimeWindow) StartTime(end time.Time) (time.Time, error) {
	d, err := ParseDuration(w.Duration)
	if err != nil {
		return time.Time{}, err
	}
	if w.Type == WindowCalendar {
		u := end.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return end.Add(-d), nil
}

// Minutes returns the window length in minutes.
func (w TimeWindow) Minutes() (float64, error) {
	d, err := ParseDuration(w.Duration)
	if err != nil {
		return 0, err
	}
	return d.Minutes(), nil
}

// SLO is a declared service level objective. Immutable once created;
// changes go through an explicit update against the repository.
type SLO struct {
	ID      string            `yaml:"id" json:"id"`
	Service string            `yaml:"service" json:"service"`
	Name    string            `yaml:"name" json:"name"`
	Target  float64           `yaml:"target" json:"target"`
	Window  TimeWindow        `yaml:"window" json:"window"`
	Query   string            `yaml:"query" json:"query"`
	Owner   string            `yaml:"owner,omitempty" json:"owner,omitempty"`
	Labels  map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// NormalizedTarget returns the target as a fraction in [0,1].
// Manifests may declare targets as percentages (99.9) or fractions (0.999).
func (s *SLO) NormalizedTarget() float64 {
	t := s.Target
	if t > 1 {
		t = t / 100
	}
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
