package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	engine       TEXT NOT NULL,
	dimensions   TEXT NOT NULL,
	params_json  TEXT,
	verdict      TEXT,
	reason       TEXT,
	created_at   TEXT NOT NULL,
	finished_at  TEXT
);

CREATE TABLE IF NOT EXISTS agent_versions (
	version_id   TEXT PRIMARY KEY,
	parent_id    TEXT,
	session_id   TEXT NOT NULL,
	agent_id     TEXT NOT NULL,
	round        INTEGER NOT NULL,
	priorities   TEXT NOT NULL,
	motive       REAL NOT NULL,
	status       TEXT NOT NULL,
	history      TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES agent_versions(version_id),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_agent_versions_session ON agent_versions(session_id, agent_id, round);
`

// #endregion schema

// #region store-struct
// Store keeps sessions and per-round agent versions in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region sessions
// CreateSession records the start of an engine run and returns its id.
func (s *Store) CreateSession(engine string, dims vector.Dimensions, params any) (Session, error) {
	dimsJSON, err := json.Marshal(dims)
	if err != nil {
		return Session{}, fmt.Errorf("marshal dimensions: %w", err)
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return Session{}, fmt.Errorf("marshal params: %w", err)
	}

	sess := Session{
		ID:         uuid.New().String(),
		Engine:     engine,
		Dimensions: append(vector.Dimensions(nil), dims...),
		ParamsJSON: string(paramsJSON),
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, engine, dimensions, params_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, engine, string(dimsJSON), sess.ParamsJSON, sess.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// FinishSession stores the terminal verdict of a session.
func (s *Store) FinishSession(sessionID, verdict, reason string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET verdict = ?, reason = ?, finished_at = ? WHERE session_id = ?`,
		verdict, reason, time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT session_id, engine, dimensions, params_json, verdict, reason, created_at, finished_at
		 FROM sessions WHERE session_id = ?`, id,
	)
	sess, err := scanSession(row)
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	// RFC3339Nano text does not sort chronologically; rowid follows insert order.
	rows, err := s.db.Query(
		`SELECT session_id, engine, dimensions, params_json, verdict, reason, created_at, finished_at
		 FROM sessions ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var sess Session
	var dimsJSON string
	var params, verdict, reason, finished sql.NullString
	var createdStr string
	if err := sc.Scan(&sess.ID, &sess.Engine, &dimsJSON, &params, &verdict, &reason, &createdStr, &finished); err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(dimsJSON), &sess.Dimensions); err != nil {
		return Session{}, fmt.Errorf("unmarshal dimensions: %w", err)
	}
	sess.ParamsJSON = params.String
	sess.Verdict = verdict.String
	sess.Reason = reason.String
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if finished.Valid {
		sess.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	return sess, nil
}

// #endregion sessions

// #region commit-round
// CommitRound inserts one version per agent for round, atomically. Each
// version's parent is the agent's previous version in the same session.
func (s *Store) CommitRound(sessionID string, round int, snaps []agent.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, snap := range snaps {
		var parent sql.NullString
		err := tx.QueryRow(
			`SELECT version_id FROM agent_versions WHERE session_id = ? AND agent_id = ?
			 ORDER BY round DESC LIMIT 1`, sessionID, snap.ID,
		).Scan(&parent)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("find parent of %s: %w", snap.ID, err)
		}

		vecJSON, err := json.Marshal(snap.Priorities)
		if err != nil {
			return fmt.Errorf("marshal priorities: %w", err)
		}
		history := snap.History
		if history == nil {
			history = []string{}
		}
		histJSON, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}

		var parentPtr interface{}
		if parent.Valid {
			parentPtr = parent.String
		}
		_, err = tx.Exec(
			`INSERT INTO agent_versions (version_id, parent_id, session_id, agent_id, round, priorities, motive, status, history, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), parentPtr, sessionID, snap.ID, round,
			string(vecJSON), snap.Motive, string(snap.Status), string(histJSON), now,
		)
		if err != nil {
			return fmt.Errorf("insert version for %s: %w", snap.ID, err)
		}
	}

	return tx.Commit()
}

// #endregion commit-round

// #region list-versions
// ListAgentVersions returns every version of a session ordered by round, then agent.
func (s *Store) ListAgentVersions(sessionID string) ([]AgentVersion, error) {
	return s.queryVersions(
		`SELECT version_id, parent_id, session_id, agent_id, round, priorities, motive, status, history, created_at
		 FROM agent_versions WHERE session_id = ? ORDER BY round ASC, agent_id ASC`, sessionID,
	)
}

// LatestVersions returns the most recent version of each agent in a session.
func (s *Store) LatestVersions(sessionID string) ([]AgentVersion, error) {
	return s.queryVersions(
		`SELECT v.version_id, v.parent_id, v.session_id, v.agent_id, v.round, v.priorities, v.motive, v.status, v.history, v.created_at
		 FROM agent_versions v
		 JOIN (SELECT agent_id, MAX(round) AS round FROM agent_versions WHERE session_id = ? GROUP BY agent_id) m
		   ON v.agent_id = m.agent_id AND v.round = m.round
		 WHERE v.session_id = ?
		 ORDER BY v.agent_id ASC`, sessionID, sessionID,
	)
}

func (s *Store) queryVersions(query string, args ...any) ([]AgentVersion, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []AgentVersion
	for rows.Next() {
		var v AgentVersion
		var parentID sql.NullString
		var vecJSON, histJSON, status, createdStr string
		if err := rows.Scan(&v.VersionID, &parentID, &v.SessionID, &v.AgentID, &v.Round,
			&vecJSON, &v.Motive, &status, &histJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.ParentID = parentID.String
		v.Status = agent.Status(status)
		if err := json.Unmarshal([]byte(vecJSON), &v.Priorities); err != nil {
			return nil, fmt.Errorf("unmarshal priorities: %w", err)
		}
		if err := json.Unmarshal([]byte(histJSON), &v.History); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, v)
	}
	return out, rows.Err()
}

// #endregion list-versions
