package logging

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestProvenanceSink_AppendAndList(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	sink, err := NewProvenanceSink(db)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	rec := Record{
		SessionID: "s1",
		Engine:    EngineNegotiation,
		Round:     1,
		Event:     EventRound,
		Decision:  "CONTINUE",
		Reason:    "harmony below threshold",
		Fields:    []Field{F("harmony", 0.21), F("pass", false)},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := sink.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Append(Record{SessionID: "s2", Engine: EngineSealing, Event: EventSession}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := ListProvenance(db, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row for s1, got %d", len(got))
	}
	if got[0].Decision != "CONTINUE" || got[0].Round != 1 {
		t.Errorf("unexpected row: %+v", got[0])
	}
	if v, ok := got[0].Field("harmony"); !ok || v != "0.2100" {
		t.Errorf("expected harmony field 0.2100, got %q", v)
	}
	if !got[0].CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at mismatch: %v", got[0].CreatedAt)
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	if _, err := NewProvenanceSink(db); err != nil {
		t.Fatalf("new sink: %v", err)
	}

	err := LogDecision(db, Record{SessionID: "s3", Engine: EngineSealing, Event: EventSession})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var agentID, decision, reason, fieldsJSON sql.NullString
	db.QueryRow("SELECT agent_id, decision, reason, fields_json FROM provenance_log").Scan(
		&agentID, &decision, &reason, &fieldsJSON,
	)
	if agentID.Valid || decision.Valid || reason.Valid || fieldsJSON.Valid {
		t.Error("expected NULL optional columns for empty values")
	}
}

func TestLogDecision_ErrorIsAuditSinkError(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	err := LogDecision(db, Record{SessionID: "s4", Engine: EngineSealing, Event: EventRound})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
	if !errors.Is(err, ErrAuditSink) {
		t.Fatalf("expected ErrAuditSink, got %v", err)
	}
}

func TestLogDecision_InsertFailureWithMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectExec("INSERT INTO provenance_log").WillReturnError(boom)

	err = LogDecision(db, Record{SessionID: "s5", Engine: EngineNegotiation, Event: EventVerdict, Decision: "ESCALATE"})
	if !errors.Is(err, ErrAuditSink) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped audit sink error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewProvenanceSink_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS provenance_log").WillReturnError(errors.New("read-only database"))

	if _, err := NewProvenanceSink(db); !errors.Is(err, ErrAuditSink) {
		t.Fatalf("expected ErrAuditSink, got %v", err)
	}
}

// #endregion log-decision-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
