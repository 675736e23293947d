// Package status implements the structured status-condition model (§3
// "Status conditions") patched onto a ShipcatManifest CRD after each stage
// of an apply, plus the derived summary used by read-only reporting.
package status

import "time"

// ConditionType names one of the three tracked conditions.
type ConditionType string

const (
	Generated ConditionType = "generated"
	Applied   ConditionType = "applied"
	RolledOut ConditionType = "rolledout"
)

// Condition is a single named condition with a boolean status, optional
// reason/message, and the originator that last transitioned it.
type Condition struct {
	Type               ConditionType `json:"type"`
	Status             bool          `json:"status"`
	Reason             string        `json:"reason,omitempty"`
	Message            string        `json:"message,omitempty"`
	LastTransitionTime time.Time     `json:"lastTransitionTime"`
	Originator         string        `json:"originator"`
}

// Summary is the derived view computed from a condition set, used by
// status reporting and the read server.
type Summary struct {
	LastAction                 string     `json:"lastAction,omitempty"`
	LastFailureReason          string     `json:"lastFailureReason,omitempty"`
	LastSuccessfulGenerate     *time.Time `json:"lastSuccessfulGenerate,omitempty"`
	LastSuccessfulApply        *time.Time `json:"lastSuccessfulApply,omitempty"`
	LastSuccessfulRollout      *time.Time `json:"lastSuccessfulRollout,omitempty"`
	LastSuccessfulRolloutVersion string   `json:"lastSuccessfulRolloutVersion,omitempty"`
}

// Status is the full set of tracked conditions for a service, keyed by
// condition type, plus the derived summary.
type Status struct {
	Conditions map[ConditionType]Condition `json:"conditions"`
	Summary    Summary                     `json:"summary"`
}

// NewStatus returns an empty status with no conditions set.
func NewStatus() *Status {
	return &Status{Conditions: map[ConditionType]Condition{}}
}

// Patch sets (or replaces) a condition and recomputes the derived summary.
// now is injected so callers can control the RFC3339 timestamp in tests;
// production callers pass time.Now().UTC().
func (s *Status) Patch(typ ConditionType, ok bool, reason, message, originator string, now time.Time, version string) {
	s.Conditions[typ] = Condition{
		Type:               typ,
		Status:             ok,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: now,
		Originator:         originator,
	}
	s.recompute(typ, ok, reason, now, version)
}

func (s *Status) recompute(typ ConditionType, ok bool, reason string, now time.Time, version string) {
	s.Summary.LastAction = string(typ)
	if !ok {
		s.Summary.LastFailureReason = reason
		return
	}
	t := now
	switch typ {
	case Generated:
		s.Summary.LastSuccessfulGenerate = &t
	case Applied:
		s.Summary.LastSuccessfulApply = &t
	case RolledOut:
		s.Summary.LastSuccessfulRollout = &t
		if version != "" {
			s.Summary.LastSuccessfulRolloutVersion = version
		}
	}
}

// IsComplete reports whether all three conditions are present and true,
// i.e. a fully successful apply+rollout.
func (s *Status) IsComplete() bool {
	for _, t := range []ConditionType{Generated, Applied, RolledOut} {
		c, ok := s.Conditions[t]
		if !ok || !c.Status {
			return false
		}
	}
	return true
}
