package driver

// Kind tells the loader which C signature an entry point has.
type Kind int

const (
	// char* fn(int session, const char* args...)
	KindText Kind = iota
	// int create(const char* port, int flags)
	KindCreate
	// int destroy(int handle)
	KindDestroy
)

type EntryPoint struct {
	Name string
	Kind Kind
	// Arity is the number of string arguments after the session id.
	Arity int
}

var (
	ConsultarStatusOperacional = EntryPoint{Name: "ConsultarStatusOperacional", Kind: KindText, Arity: 1}
	ExtrairLogs                = EntryPoint{Name: "ExtrairLogs", Kind: KindText, Arity: 1}
	AtualizarSoftwareSAT       = EntryPoint{Name: "AtualizarSoftwareSAT", Kind: KindText, Arity: 1}
	DesbloquearSAT             = EntryPoint{Name: "DesbloquearSAT", Kind: KindText, Arity: 1}
	AssociarAssinatura         = EntryPoint{Name: "AssociarAssinatura", Kind: KindText, Arity: 3}
	Create                     = EntryPoint{Name: "create", Kind: KindCreate}
	Destroy                    = EntryPoint{Name: "destroy", Kind: KindDestroy}
)

var operations = map[string]EntryPoint{
	ConsultarStatusOperacional.Name: ConsultarStatusOperacional,
	ExtrairLogs.Name:                ExtrairLogs,
	AtualizarSoftwareSAT.Name:       AtualizarSoftwareSAT,
	DesbloquearSAT.Name:             DesbloquearSAT,
	AssociarAssinatura.Name:         AssociarAssinatura,
}

// Operation looks up a SAT text entry point by its exported name.
func Operation(name string) (EntryPoint, bool) {
	ep, ok := operations[name]
	return ep, ok
}

// Answer is the string returned by a text entry point. Valid is false when
// the driver returned a null pointer.
type Answer struct {
	Text  string
	Valid bool
}

func Null() Answer { return Answer{} }

func Text(s string) Answer { return Answer{Text: s, Valid: true} }

type (
	TextFunc    func(sessionID int32, args ...string) Answer
	CreateFunc  func(port string, flags int32) int32
	DestroyFunc func(handle int32) int32
)

// Library is an opened native library able to resolve entry points by name.
type Library interface {
	Text(name string, arity int) (TextFunc, error)
	Create(name string) (CreateFunc, error)
	Destroy(name string) (DestroyFunc, error)
	Close() error
}

// Killer is implemented by libraries living in another process. Killing
// interrupts a call that ignores its deadline.
type Killer interface {
	Kill()
}

type Opener func(path string) (Library, error)
