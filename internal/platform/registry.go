package platform

import (
	"sync"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// Sentinel errors for registry operations.
var (
	// ErrKindAlreadyRegistered is returned when attempting to register
	// hooks for a kind that already has them.
	ErrKindAlreadyRegistered = errors.New("platform kind already registered")

	// ErrInvalidKind is returned when attempting to register hooks for
	// KindUnknown or a value outside the known kinds.
	ErrInvalidKind = errors.New("invalid platform kind")
)

// HooksFactory creates the hooks for a root directory. Factories may pick
// between layouts of the same kind by looking at the directory.
type HooksFactory func(root string) Hooks

// Registry maps platform kinds to their hooks.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]HooksFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Kind]HooksFactory),
	}
}

// Register adds the hooks factory of a kind.
// Returns an error if:
//   - The kind is not one of Kinds()
//   - The kind is already registered
//   - The factory is nil
func (r *Registry) Register(kind Kind, f HooksFactory) error {
	if !validKind(kind) || f == nil {
		return ErrInvalidKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return ErrKindAlreadyRegistered
	}

	r.factories[kind] = f
	return nil
}

// Get returns the factory of a kind.
func (r *Registry) Get(kind Kind) (HooksFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[kind]
	return f, ok
}

// All returns the registered kinds in the order defined by Kinds().
func (r *Registry) All() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []Kind
	for _, k := range Kinds() {
		if _, ok := r.factories[k]; ok {
			results = append(results, k)
		}
	}
	return results
}

// Ordered returns the registered kinds with preferred first and the rest in
// the order defined by Kinds().
func (r *Registry) Ordered(preferred Kind) []Kind {
	all := r.All()
	for i, k := range all {
		if k == preferred {
			return append([]Kind{k}, append(all[:i:i], all[i+1:]...)...)
		}
	}
	return all
}

func validKind(k Kind) bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}
