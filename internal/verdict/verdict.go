// Package verdict derives the overall build verdict from stage outcomes and
// holds the immutable run report handed to hooks and reporters.
package verdict

import (
	"fmt"

	"github.com/vk/stagegrid/internal/stage"
)

// Verdict is the overall classification of a run.
type Verdict int

const (
	Success Verdict = iota
	Unstable
	Failure
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Unstable:
		return "unstable"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// MarshalText renders the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a verdict name.
func (v *Verdict) UnmarshalText(text []byte) error {
	for _, c := range []Verdict{Success, Unstable, Failure} {
		if c.String() == string(text) {
			*v = c
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", string(text))
}

// Derive computes the verdict of a set of outcomes: Failure if any outcome
// is a failure without continue-on-error, Unstable if every failure was
// tolerated, Success otherwise. Skipped outcomes and warnings do not count.
func Derive(outcomes []stage.Outcome) Verdict {
	v := Success
	for _, o := range outcomes {
		switch {
		case o.Blocking():
			return Failure
		case o.Tolerated():
			v = Unstable
		}
	}
	return v
}

// Final is Derive with run-fatal errors and aborts forcing Failure.
func Final(outcomes []stage.Outcome, fatal bool) Verdict {
	if fatal {
		return Failure
	}
	return Derive(outcomes)
}
