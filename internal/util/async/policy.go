package async

import (
	"fmt"
	"strings"
)

// SaturationPolicy decides what Submit does with a task the pool cannot admit.
type SaturationPolicy int

const (
	// Reject returns ErrRejected (or ErrPoolClosed after shutdown).
	Reject SaturationPolicy = iota
	// Block waits until the queue has room, the submit context is done, or the pool shuts down.
	Block
	// CallerRuns executes the task synchronously on the submitting goroutine.
	CallerRuns
	// DropOldest discards the oldest queued task to make room for the new one.
	DropOldest
)

var policyNames = map[SaturationPolicy]string{
	Reject:     "Reject",
	Block:      "Block",
	CallerRuns: "CallerRuns",
	DropOldest: "DropOldest",
}

func (p SaturationPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("SaturationPolicy(%d)", int(p))
}

// ParseSaturationPolicy parses a policy name case-insensitively.
// Dashes and underscores are ignored, so "caller-runs" parses as CallerRuns.
func ParseSaturationPolicy(s string) (SaturationPolicy, error) {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for p, name := range policyNames {
		if strings.ToLower(name) == normalized {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown saturation policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p SaturationPolicy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("unknown saturation policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *SaturationPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseSaturationPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
