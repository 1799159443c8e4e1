package agent

import (
	"errors"
	"fmt"
	"strings"
)

// #region sentinels
var (
	// ErrConfiguration marks malformed sessions: missing fields, inconsistent
	// dimension sets, out-of-range parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrInsufficientPeers is returned when a negotiation round would average
	// over zero peers.
	ErrInsufficientPeers = errors.New("insufficient peers")

	// ErrAgentSealed is returned when a state change is attempted on a sealed agent.
	ErrAgentSealed = errors.New("agent is sealed")
)

// #endregion sentinels

// #region config-error
// ConfigError collects every problem found while validating a session so the
// operator sees all of them at once.
type ConfigError struct {
	Problems []string
}

// NewConfigError builds a ConfigError from a formatted problem.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// Add appends a formatted problem.
func (e *ConfigError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Merge folds err into e. Problems of a *ConfigError are copied one by one;
// any other error becomes a single problem.
func (e *ConfigError) Merge(err error) {
	if err == nil {
		return
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		e.Problems = append(e.Problems, ce.Problems...)
		return
	}
	e.Add("%v", err)
}

// OrNil returns nil when no problems were recorded.
func (e *ConfigError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (e *ConfigError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Problems[0])
	}
	return fmt.Sprintf("%s: %d problems: %s", ErrConfiguration, len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// #endregion config-error
