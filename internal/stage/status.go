package stage

import "fmt"

// Status is the lifecycle state of a stage.
type Status int

const (
	Pending Status = iota
	Running
	Skipped
	Success
	Failed
	TimedOut
)

var statusNames = map[Status]string{
	Pending:  "pending",
	Running:  "running",
	Skipped:  "skipped",
	Success:  "success",
	Failed:   "failed",
	TimedOut: "timed_out",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON and YAML reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage status %q", string(text))
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case Skipped, Success, Failed, TimedOut:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the status counts as a failure.
func (s Status) IsFailure() bool {
	return s == Failed || s == TimedOut
}

// CanTransition reports whether moving from s to next is allowed:
// Pending -> {Skipped, Running}, Running -> {Success, Failed, TimedOut}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case Pending:
		return next == Skipped || next == Running
	case Running:
		return next == Success || next == Failed || next == TimedOut
	default:
		return false
	}
}
