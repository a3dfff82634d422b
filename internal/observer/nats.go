package observer

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const DEFAULT_SUBJECT = "ariusmonitor.outcomes"

// NATS publishes every report as JSON on a subject.
type NATS struct {
	baseObserver
	conn    *nats.Conn
	subject string
}

func NewNATS(name, url string, opts map[string]string) (n *NATS, err error) {
	conn, err := nats.Connect(url,
		nats.Name("ariusmonitor-"+name),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	subject := opts["subject"]
	if subject == "" {
		subject = DEFAULT_SUBJECT
	}
	return &NATS{
		baseObserver: baseObserver{name: name, observerType: "nats"},
		conn:         conn,
		subject:      subject,
	}, nil
}

func (n *NATS) Cleanup() {
	n.baseObserver.Cleanup()
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

func (n *NATS) SaveReports(r []Report) bool {
	return n.save(r, n.publish)
}

func (n *NATS) publish(reports []Report) ([]Report, error) {
	for i, r := range reports {
		data, err := json.Marshal(r)
		if err != nil {
			return reports[i:], err
		}
		if err := n.conn.Publish(n.subject+"."+r.Program, data); err != nil {
			return reports[i:], err
		}
	}
	if err := n.conn.FlushTimeout(5 * time.Second); err != nil {
		return reports, err
	}
	return nil, nil
}
