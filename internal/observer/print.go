package observer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	STDOUT = "stdout"
	STDERR = "stderr"
)

type Print struct {
	baseObserver
	out  io.Writer
	json bool
}

// NewPrint writes reports to stdout or stderr. The "format" option set to
// "json" prints one JSON document per line.
func NewPrint(name, out string, opts map[string]string) (p *Print) {
	p = &Print{baseObserver: baseObserver{name: name, observerType: "print"}}
	if out == STDERR {
		p.out = os.Stderr
	} else {
		p.out = os.Stdout
	}
	p.json = opts["format"] == "json"
	return
}

func (p *Print) SaveReports(r []Report) bool {
	return p.save(r, p.print)
}

func (p *Print) print(reports []Report) ([]Report, error) {
	for i, r := range reports {
		var err error
		if p.json {
			err = json.NewEncoder(p.out).Encode(r)
		} else {
			_, err = fmt.Fprintf(p.out, "Run: %s; Program: %s; Operation: %s; Library: %s; Outcome: %s; Attempts: %d\n",
				r.RunID, r.Program, r.Operation, r.Library, r.Outcome, r.Attempts)
		}
		if err != nil {
			return reports[i:], err
		}
	}
	return nil, nil
}
