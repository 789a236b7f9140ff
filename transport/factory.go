package transport

import (
	"fmt"
	"sync"
)

// Constructor builds a transport instance carrying the given default
// policy.
type Constructor func(opts Options) (Transport, error)

var (
	registryMu   sync.RWMutex
	constructors = make(map[Kind]Constructor)
)

// Register makes a transport kind available to New. Concrete kinds call
// it from their package init, database/sql driver style. Registering the
// same kind twice panics: it is a programming error in wiring.
func Register(kind Kind, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := constructors[kind]; dup {
		panic(fmt.Sprintf("transport: Register called twice for kind %q", kind))
	}
	constructors[kind] = ctor
}

// Kinds returns the registered transport kinds.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Kind, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	return out
}

// New creates a transport of the given kind with the given default policy.
func New(kind Kind, opts Options) (Transport, error) {
	registryMu.RLock()
	ctor, ok := constructors[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ctor(opts.normalized())
}
