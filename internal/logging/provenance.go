package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region schema
const provenanceSchema = `
CREATE TABLE IF NOT EXISTS provenance_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	engine      TEXT NOT NULL,
	round       INTEGER NOT NULL,
	agent_id    TEXT,
	event       TEXT NOT NULL,
	decision    TEXT,
	reason      TEXT,
	fields_json TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provenance_session ON provenance_log(session_id, id);
`

// #endregion schema

// #region provenance-sink
// ProvenanceSink writes audit records into the provenance_log table.
type ProvenanceSink struct {
	db *sql.DB
}

// NewProvenanceSink creates the provenance_log table if needed.
func NewProvenanceSink(db *sql.DB) (*ProvenanceSink, error) {
	if _, err := db.Exec(provenanceSchema); err != nil {
		return nil, &SinkError{Op: "migrate provenance_log", Err: err}
	}
	return &ProvenanceSink{db: db}, nil
}

// Append inserts rec as one row.
func (s *ProvenanceSink) Append(rec Record) error {
	return LogDecision(s.db, rec)
}

// #endregion provenance-sink

// #region log-decision
// LogDecision writes a provenance row for rec.
func LogDecision(db *sql.DB, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var fieldsJSON any
	if len(rec.Fields) > 0 {
		b, err := json.Marshal(rec.Fields)
		if err != nil {
			return &SinkError{Op: "marshal fields", Err: err}
		}
		fieldsJSON = string(b)
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (session_id, engine, round, agent_id, event, decision, reason, fields_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.Engine,
		rec.Round,
		nullIfEmpty(rec.AgentID),
		rec.Event,
		nullIfEmpty(rec.Decision),
		nullIfEmpty(rec.Reason),
		fieldsJSON,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return &SinkError{Op: "log decision", Err: err}
	}
	return nil
}

// #endregion log-decision

// #region list
// ListProvenance returns a session's records in insertion order.
func ListProvenance(db *sql.DB, sessionID string) ([]Record, error) {
	rows, err := db.Query(
		`SELECT session_id, engine, round, agent_id, event, decision, reason, fields_json, created_at
		 FROM provenance_log WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var agentID, decision, reason, fieldsJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &rec.Engine, &rec.Round, &agentID, &rec.Event,
			&decision, &reason, &fieldsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan provenance row: %w", err)
		}
		rec.AgentID = agentID.String
		rec.Decision = decision.String
		rec.Reason = reason.String
		if fieldsJSON.Valid {
			if err := json.Unmarshal([]byte(fieldsJSON.String), &rec.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal fields: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
