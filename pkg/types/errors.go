package types

import "fmt"

// ActionKind identifies a user-initiated order action.
type ActionKind string

const (
	ActionCancel  ActionKind = "cancel"
	ActionExecute ActionKind = "execute"
)

// ActionError is returned when a cancel or execute action fails after its optimistic
// update has been rolled back.
type ActionError struct {
	Action  ActionKind // cancel or execute
	OrderID string
	Message string // server-provided reason, if any
	Err     error  // transport error, if any
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s order %s failed: %v", e.Action, e.OrderID, e.Err)
	}

	return fmt.Sprintf("%s order %s rejected: %s", e.Action, e.OrderID, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// UserMessage is the single message shown to the user for this failure.
func (e *ActionError) UserMessage() string {
	verb := "cancel"
	if e.Action == ActionExecute {
		verb = "execute"
	}

	if e.Message != "" {
		return fmt.Sprintf("Failed to %s order: %s", verb, e.Message)
	}

	return fmt.Sprintf("Failed to %s order. Please try again.", verb)
}
