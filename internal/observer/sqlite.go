package observer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite keeps the outcome history in a local database file.
type SQLite struct {
	baseObserver
	db     *sql.DB
	insert string
}

func NewSQLite(name, path string, opts map[string]string) (s *SQLite, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	table := tableName(opts)
	if _, err := db.Exec(fmt.Sprintf(createTable, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(strings.Split(insertColumns, ","))), ", ")
	s = &SQLite{
		baseObserver: baseObserver{name: name, observerType: "sqlite"},
		db:           db,
		insert:       fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", table, insertColumns, placeholders),
	}
	return s, nil
}

func (s *SQLite) Cleanup() {
	s.baseObserver.Cleanup()
	s.db.Close()
}

func (s *SQLite) SaveReports(r []Report) bool {
	return s.save(r, func(reports []Report) ([]Report, error) {
		return insertReports(s.db, s.insert, reports)
	})
}
