package harness

import (
	"github.com/roach88/marketplace/internal/ir"
)

// TraceEvent is one audit entry as it appears in a golden trace: the
// event name and args plus the entry's seq, tx id and payload.
type TraceEvent struct {
	Seq     int64                  `json:"seq"`
	TxID    string                 `json:"tx_id"`
	Event   string                 `json:"event"`
	Args    map[string]ir.Identity `json:"args"`
	Payload ir.Payload             `json:"payload,omitempty"`
}

// Rejection records a step that failed as expected.
type Rejection struct {
	Step int    `json:"step"`
	Op   string `json:"op"`
	Code string `json:"code"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step outcome, watch and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every audit entry in seq order.
	Trace []TraceEvent `json:"trace"`

	// Rejections lists the expected failures, in step order.
	Rejections []Rejection `json:"rejections,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Rejections: []Rejection{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEntryTrace appends an audit entry to the trace.
func (r *Result) AddEntryTrace(e ir.Entry) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     e.Seq,
		TxID:    e.TxID,
		Event:   e.Kind.EventName(),
		Args:    e.Args(),
		Payload: e.Payload,
	})
}

// AddRejection records an expected failure.
func (r *Result) AddRejection(step int, op string, code ir.ErrorCode) {
	r.Rejections = append(r.Rejections, Rejection{Step: step, Op: op, Code: string(code)})
}
