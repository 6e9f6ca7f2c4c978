package model

import "fmt"

// Status is a compliance outcome. Indeterminate is a first-class state:
// missing data is neither a pass nor a failure, and aggregation never
// collapses it into either.
type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusIndeterminate
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusIndeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pass":
		*s = StatusPass
	case "fail":
		*s = StatusFail
	case "indeterminate":
		*s = StatusIndeterminate
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// Bound is the requirement applied to one metric. Nil sides are
// unconstrained; gain uses both sides, flatness/VSWR/NF use Max only,
// P1dB/rejection/IM3 use Min only.
type Bound struct {
	Min *float64 `json:"Min,omitempty"`
	Max *float64 `json:"Max,omitempty"`
}

// BoundMin builds a min-only bound.
func BoundMin(v float64) Bound { return Bound{Min: &v} }

// BoundMax builds a max-only bound.
func BoundMax(v float64) Bound { return Bound{Max: &v} }

// BoundBetween builds a two-sided bound.
func BoundBetween(min, max float64) Bound { return Bound{Min: &min, Max: &max} }

// Verdict is the outcome of one metric against one bound. Margin is
// always "room remaining": the distance to the nearer bound, negative
// when the metric is failing. MarginUnbounded marks verdicts whose margin
// has no finite value (an infinite metric against a finite bound).
type Verdict struct {
	Metric Metric `json:"Metric"`
	Bound  Bound  `json:"Bound"`

	Status          Status  `json:"Status"`
	Margin          float64 `json:"Margin"`
	MarginUnbounded bool    `json:"MarginUnbounded,omitempty"`
	Reason          string  `json:"Reason,omitempty"`
}

// Aggregate folds constituent verdicts into one status per the fail-safe
// rule: pass only when everything passed, fail when anything failed, and
// indeterminate otherwise. The empty set is indeterminate too: it
// represents an evaluation that produced no evidence at all.
func Aggregate(verdicts []Verdict) Status {
	if len(verdicts) == 0 {
		return StatusIndeterminate
	}
	sawIndeterminate := false
	for _, v := range verdicts {
		switch v.Status {
		case StatusFail:
			return StatusFail
		case StatusIndeterminate:
			sawIndeterminate = true
		}
	}
	if sawIndeterminate {
		return StatusIndeterminate
	}
	return StatusPass
}
