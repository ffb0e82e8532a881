package store

import "fmt"

// schema renders the DDL for a dialect. Both tables are append-only logs.
func schema(d Dialect) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS session_events (
    id          %[1]s,
    kind        TEXT NOT NULL,
    state       TEXT NOT NULL DEFAULT '',
    level       TEXT NOT NULL DEFAULT '',
    message     TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    created_at  %[2]s NOT NULL DEFAULT (%[3]s)
);
CREATE INDEX IF NOT EXISTS idx_session_events_kind ON session_events(kind);

CREATE TABLE IF NOT EXISTS run_summaries (
    id                %[1]s,
    started_at        TEXT NOT NULL DEFAULT '',
    finished_at       TEXT NOT NULL DEFAULT '',
    duration          TEXT NOT NULL DEFAULT '',
    delivered_orders  INTEGER NOT NULL DEFAULT 0,
    fuel_consumed     DOUBLE PRECISION NOT NULL DEFAULT 0,
    planning_time     TEXT NOT NULL DEFAULT '',
    statistics        %[4]s,
    received_at       %[2]s NOT NULL DEFAULT (%[3]s)
);
`, d.AutoIncrementPK(), d.TimestampType(), d.Now(), d.JSONType())
}
