package domain

// OperationState tracks a ledger operation through
// requested -> validating -> committing -> completed | rejected | busy.
type OperationState string

const (
	StateRequested  OperationState = "requested"
	StateValidating OperationState = "validating"
	StateCommitting OperationState = "committing"
	StateCompleted  OperationState = "completed"
	StateRejected   OperationState = "rejected"
	StateBusy       OperationState = "busy"
)

// IsFinal reports whether no further transition can happen.
func (s OperationState) IsFinal() bool {
	return s == StateCompleted || s == StateRejected || s == StateBusy
}
