package observer

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

const DEFAULT_TABLE = "sat_outcomes"

const createTable = `CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT PRIMARY KEY,
	hostname TEXT,
	program TEXT,
	version TEXT,
	operation TEXT,
	library TEXT,
	manufacturer TEXT,
	device TEXT,
	outcome TEXT,
	ok BOOLEAN,
	attempts INTEGER,
	session_id INTEGER,
	payload TEXT,
	recovered TEXT,
	error TEXT,
	started TIMESTAMP,
	finished TIMESTAMP
)`

const insertColumns = "run_id, hostname, program, version, operation, library, manufacturer, device, outcome, ok, attempts, session_id, payload, recovered, error, started, finished"

func reportArgs(r Report) []any {
	return []any{
		r.RunID, r.Hostname, r.Program, r.Version, r.Operation, r.Library, r.Manufacturer, r.Device,
		r.Outcome, r.OK, r.Attempts, r.SessionID, r.Payload, r.Recovered, r.Error,
		r.Started.UTC(), r.Finished.UTC(),
	}
}

// insertReports writes reports in one transaction. On failure every report
// of the batch is returned as undelivered.
func insertReports(db *sql.DB, query string, reports []Report) ([]Report, error) {
	if len(reports) == 0 {
		return nil, nil
	}
	txn, err := db.Begin()
	if err != nil {
		return reports, fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := txn.Prepare(query)
	if err != nil {
		txn.Rollback()
		return reports, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		if _, err := stmt.Exec(reportArgs(r)...); err != nil {
			txn.Rollback()
			return reports, fmt.Errorf("failed to insert report %s: %w", r.RunID, err)
		}
	}
	if err := txn.Commit(); err != nil {
		return reports, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil, nil
}

func applyPoolOptions(db *sql.DB, opts map[string]string) {
	for opt, val := range opts {
		switch opt {
		case "max_conn":
			maxconn, _ := strconv.Atoi(val)
			db.SetMaxOpenConns(maxconn)
		case "max_idle":
			maxconn, _ := strconv.Atoi(val)
			db.SetMaxIdleConns(maxconn)
		case "max_conn_time":
			dur, _ := time.ParseDuration(val)
			db.SetConnMaxLifetime(dur)
		case "max_idle_time":
			dur, _ := time.ParseDuration(val)
			db.SetConnMaxIdleTime(dur)
		}
	}
}

func tableName(opts map[string]string) string {
	if t := opts["table"]; t != "" {
		return t
	}
	return DEFAULT_TABLE
}
