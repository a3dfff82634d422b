// Package fabricante maps SAT manufacturer identifiers to the driver
// libraries shipped by each vendor.
package fabricante

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

var (
	ErrInvalidManufacturer = errors.New("invalid manufacturer")
	ErrUnresolved          = errors.New("no driver library found for manufacturer")
)

// ID values are part of the external interface and must not be renumbered.
type ID int

const (
	NONE          ID = 0
	DIMEP         ID = 1
	SWEDA         ID = 2
	TANCA         ID = 3
	GERTEC        ID = 4
	BEMATECH      ID = 6
	ELGIN         ID = 7
	MFE           ID = 9
	ELGIN_LINKER2 ID = 10
	CONTROL_ID    ID = 12
)

var names = map[ID]string{
	NONE:          "NONE",
	DIMEP:         "DIMEP",
	SWEDA:         "SWEDA",
	TANCA:         "TANCA",
	GERTEC:        "GERTEC",
	BEMATECH:      "BEMATECH",
	ELGIN:         "ELGIN",
	MFE:           "MFE",
	ELGIN_LINKER2: "ELGIN_LINKER2",
	CONTROL_ID:    "ID",
}

func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("ID(%d)", int(id))
}

var libraries = map[ID]string{
	GERTEC:        "libSatGer.so",
	DIMEP:         "libsatprotocol.so",
	SWEDA:         "libSAT.so",
	TANCA:         "libsattanca.so",
	BEMATECH:      "libbemasat.so",
	ELGIN:         "libsatelgin.so",
	ELGIN_LINKER2: "libsatelgin-linker2.so",
	CONTROL_ID:    "libsatid.so",
	MFE:           "libmfe.so",
}

type Entry struct {
	ID           ID
	PrimaryPath  string
	FallbackPath string
}

// Registry is built once at startup and only read afterwards.
type Registry struct {
	entries map[ID]Entry
}

// NewRegistry lays every vendor library out under the primary and fallback
// directories.
func NewRegistry(primaryDir, fallbackDir string) *Registry {
	r := &Registry{entries: make(map[ID]Entry, len(libraries))}
	for id, lib := range libraries {
		r.entries[id] = Entry{
			ID:           id,
			PrimaryPath:  filepath.Join(primaryDir, lib),
			FallbackPath: filepath.Join(fallbackDir, lib),
		}
	}
	return r
}

func (r *Registry) Lookup(id ID) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Entries returns every entry ordered by identifier.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
