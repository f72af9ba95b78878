package engine

import "fmt"

// ProtocolErrorPolicy decides what happens to the in-flight task when a
// session fails
type ProtocolErrorPolicy int

const (
	// PolicyFailFast completes the task with a failed result
	PolicyFailFast ProtocolErrorPolicy = iota
	// PolicyHang leaves async tasks pending. Sync callers are still released.
	PolicyHang
)

func (p ProtocolErrorPolicy) String() string {
	switch p {
	case PolicyHang:
		return "hang"
	default:
		return "fail-fast"
	}
}

// ParsePolicy parses "fail-fast" or "hang"; an empty string means fail-fast
func ParsePolicy(s string) (ProtocolErrorPolicy, error) {
	switch s {
	case "", "fail-fast", "failfast":
		return PolicyFailFast, nil
	case "hang":
		return PolicyHang, nil
	}
	return PolicyFailFast, fmt.Errorf("unknown protocol error policy %q", s)
}
