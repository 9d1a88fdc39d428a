package types

// OutcomeStatus is the result of applying one unit to one file.
type OutcomeStatus string

const (
	StatusApplied   OutcomeStatus = "applied"
	StatusUnchanged OutcomeStatus = "unchanged"
	StatusSkipped   OutcomeStatus = "skipped"
)

// Outcome records what happened to one exec unit or one xpath expression.
type Outcome struct {
	BlockID string        `json:"blockId" yaml:"blockId"`
	File    string        `json:"file,omitempty" yaml:"file,omitempty"`
	Path    string        `json:"path,omitempty" yaml:"path,omitempty"`
	Expr    string        `json:"xpath,omitempty" yaml:"xpath,omitempty"`
	Value   string        `json:"value,omitempty" yaml:"value,omitempty"`
	Status  OutcomeStatus `json:"status" yaml:"status"`
	Reason  string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Skipped returns a copy of o marked skipped for reason.
func (o Outcome) Skipped(reason string) Outcome {
	o.Status = StatusSkipped
	o.Reason = reason
	return o
}
