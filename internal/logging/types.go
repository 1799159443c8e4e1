package logging

import (
	"fmt"
	"strconv"
	"time"
)

// #region engines
// Engine names recorded on every audit record.
const (
	EngineNegotiation = "negotiation"
	EngineSealing     = "sealing"
)

// Event kinds.
const (
	EventSession  = "session"  // session opened, parameters
	EventRound    = "round"    // per-round summary
	EventDecision = "decision" // per-agent decision inside a round
	EventVerdict  = "verdict"  // terminal outcome
)

// #endregion engines

// #region record
// Field is one ordered key/value pair of an audit record.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// F formats v for an audit line. Floats use four decimals.
func F(key string, v any) Field {
	var s string
	switch x := v.(type) {
	case float64:
		s = strconv.FormatFloat(x, 'f', 4, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', 4, 32)
	case bool:
		s = strconv.FormatBool(x)
	case int:
		s = strconv.Itoa(x)
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}
	return Field{Key: key, Value: s}
}

// Record is a single audit event.
type Record struct {
	SessionID string
	Engine    string
	Round     int // 0 for session-level events
	AgentID   string
	Event     string
	Decision  string
	Reason    string
	Fields    []Field
	CreatedAt time.Time
}

// Field returns the value of key and whether it is present.
func (r Record) Field(key string) (string, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// #endregion record
