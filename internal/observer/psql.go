package observer

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"ariusmonitor.flagee.cloud/internal/logger"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PSQL struct {
	baseObserver
	dbConn          *sql.DB
	insert          string
	idleConnections prometheus.Gauge
	maxConnections  prometheus.Gauge
	usedConnections prometheus.Gauge
}

func NewPSQL(name, connStr string, opts map[string]string) (p *PSQL, err error) {
	p = &PSQL{baseObserver: baseObserver{name: name, observerType: "psql"}}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Error("Failed to open connection", slog.String("name", name), slog.Any("error", err))
		return nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", slog.String("name", name), slog.Any("error", err))
		db.Close()
		return nil, err
	}
	applyPoolOptions(db, opts)

	table := tableName(opts)
	if _, err := db.Exec(fmt.Sprintf(createTable, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	placeholders := make([]string, len(strings.Split(insertColumns, ",")))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	p.insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, insertColumns, strings.Join(placeholders, ", "))
	p.dbConn = db
	return p, nil
}

func (p *PSQL) PrepareMetrics(reg prometheus.Registerer) {
	p.baseObserver.PrepareMetrics(reg)
	factory := promauto.With(reg)
	newGauge := func(conn string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Name:        "monitora_psql_connection_stats",
			Help:        "Connection stats related to PostgreSQL database",
			ConstLabels: prometheus.Labels{"target_name": p.name, "target_type": p.observerType, "conn": conn},
		})
	}
	p.idleConnections = newGauge("idle")
	p.maxConnections = newGauge("max")
	p.usedConnections = newGauge("used")
	p.updateStats()
}

func (p *PSQL) Cleanup() {
	p.baseObserver.Cleanup()
	p.dbConn.Close()
}

func (p *PSQL) SaveReports(r []Report) bool {
	defer p.updateStats()
	return p.save(r, func(reports []Report) ([]Report, error) {
		return insertReports(p.dbConn, p.insert, reports)
	})
}

func (p *PSQL) updateStats() {
	if p.idleConnections == nil {
		return
	}
	stats := p.dbConn.Stats()
	p.idleConnections.Set(float64(stats.Idle))
	p.usedConnections.Set(float64(stats.InUse))
	p.maxConnections.Set(float64(stats.MaxOpenConnections))
}
