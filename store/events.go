package store

import "time"

// Session event kinds.
const (
	EventState   = "state"
	EventNotice  = "notice"
	EventCommand = "command"
	EventDropped = "dropped"
)

// SessionEvent is one entry of the session log.
type SessionEvent struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	State     string    `json:"state,omitempty"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) AppendSessionEvent(e *SessionEvent) error {
	id, err := db.insert(`INSERT INTO session_events (kind, state, level, message, detail) VALUES (?, ?, ?, ?, ?)`,
		e.Kind, e.State, e.Level, e.Message, e.Detail)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListSessionEvents returns the newest events first. A kind of "" matches
// every kind.
func (db *DB) ListSessionEvents(kind string, limit int) ([]*SessionEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, kind, state, level, message, detail, created_at FROM session_events`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind=?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*SessionEvent
	for rows.Next() {
		var e SessionEvent
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Kind, &e.State, &e.Level, &e.Message, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// PruneSessionEvents keeps only the newest keep events.
func (db *DB) PruneSessionEvents(keep int) (int64, error) {
	res, err := db.Exec(db.Q(`DELETE FROM session_events WHERE id NOT IN (SELECT id FROM session_events ORDER BY id DESC LIMIT ?)`), keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
