package logging

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// #region errors
// ErrAuditSink marks a failed audit write. Runs abort on it.
var ErrAuditSink = errors.New("audit sink error")

// SinkError wraps the underlying write failure.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrAuditSink, e.Op, e.Err)
}

func (e *SinkError) Unwrap() []error { return []error{ErrAuditSink, e.Err} }

// #endregion errors

// #region sink
// Sink is an append-only destination for audit records. An error means the
// record was not durably written and the caller must stop.
type Sink interface {
	Append(rec Record) error
}

// #endregion sink

// #region multi
// MultiSink fans a record out to several sinks in order. The first failure
// aborts the append.
type MultiSink []Sink

// Append writes rec to every sink.
func (m MultiSink) Append(rec Record) error {
	for _, s := range m {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

// #endregion multi

// #region memory
// MemorySink keeps records in memory. Used by replay and tests.
type MemorySink struct {
	Records []Record
	// FailAfter makes Append fail once this many records are held (0 = never).
	FailAfter int
}

// Append stores rec.
func (m *MemorySink) Append(rec Record) error {
	if m.FailAfter > 0 && len(m.Records) >= m.FailAfter {
		return &SinkError{Op: "append memory", Err: errors.New("sink full")}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.Records = append(m.Records, rec)
	return nil
}

// Last returns the most recent record.
func (m *MemorySink) Last() (Record, bool) {
	if len(m.Records) == 0 {
		return Record{}, false
	}
	return m.Records[len(m.Records)-1], true
}

// Filter returns records matching event (and agent when non-empty).
func (m *MemorySink) Filter(event, agentID string) []Record {
	var out []Record
	for _, r := range m.Records {
		if r.Event == event && (agentID == "" || r.AgentID == agentID) {
			out = append(out, r)
		}
	}
	return out
}

// #endregion memory

// #region format
// FormatLine renders rec as one human-readable line without a trailing newline:
//
//	2026-01-02T15:04:05Z negotiation session=s1 round=2 event=round decision=CONTINUE harmony=0.2100 reason="..."
func FormatLine(rec Record) string {
	var b strings.Builder
	b.WriteString(rec.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(rec.Engine)
	if rec.SessionID != "" {
		b.WriteString(" session=" + quoteIfNeeded(rec.SessionID))
	}
	b.WriteString(" round=" + strconv.Itoa(rec.Round))
	if rec.AgentID != "" {
		b.WriteString(" agent=" + quoteIfNeeded(rec.AgentID))
	}
	b.WriteString(" event=" + quoteIfNeeded(rec.Event))
	if rec.Decision != "" {
		b.WriteString(" decision=" + quoteIfNeeded(rec.Decision))
	}
	for _, f := range rec.Fields {
		b.WriteString(" " + quoteIfNeeded(f.Key) + "=" + quoteIfNeeded(f.Value))
	}
	if rec.Reason != "" {
		b.WriteString(" reason=" + strconv.Quote(rec.Reason))
	}
	return b.String()
}

// quoteIfNeeded keeps every token on one line: anything with separators,
// quotes or non-printable runes is Go-quoted.
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \"=") || strings.IndexFunc(s, notPrintable) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func notPrintable(r rune) bool { return !unicode.IsPrint(r) }

// #endregion format
