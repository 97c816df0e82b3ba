package modules

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNamespaceNotFound is returned when a module reference names an
	// unregistered namespace
	ErrNamespaceNotFound = errors.New("module namespace not found")
	// ErrModuleNotFound is returned when the namespace exists but the
	// module name does not
	ErrModuleNotFound = errors.New("module not found")
)

// Factory constructs a module instance from params, files and a private
// working directory. Factories return any so registrations are loosely
// typed; the executor checks the NodeModule capability set at dispatch.
type Factory func(params, files map[string]string, workdir string) (any, error)

// Registry maps module references of the form "namespace/Name" to
// factories. Modules are registered at process start; dispatching an
// unknown reference is a discrete task outcome, never a crash.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Factory
}

// NewRegistry creates an empty module registry
func NewRegistry() *Registry {
	return &Registry{namespaces: make(map[string]map[string]Factory)}
}

// Register adds a factory under namespace/name
func (r *Registry) Register(namespace, name string, factory Factory) error {
	if namespace == "" || name == "" {
		return fmt.Errorf("namespace and name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.namespaces[namespace]
	if !ok {
		ns = make(map[string]Factory)
		r.namespaces[namespace] = ns
	}
	if _, exists := ns[name]; exists {
		return fmt.Errorf("module %s/%s already registered", namespace, name)
	}
	ns[name] = factory
	return nil
}

// Resolve looks up the factory for a module reference. The two lookup
// failures are distinguished so callers can report discrete outcomes.
func (r *Registry) Resolve(ref string) (Factory, error) {
	namespace, name, ok := strings.Cut(ref, "/")
	if !ok || namespace == "" || name == "" {
		return nil, fmt.Errorf("malformed module reference %q: %w", ref, ErrNamespaceNotFound)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, found := r.namespaces[namespace]
	if !found {
		return nil, fmt.Errorf("reference %q: %w", ref, ErrNamespaceNotFound)
	}
	factory, found := ns[name]
	if !found {
		return nil, fmt.Errorf("reference %q: %w", ref, ErrModuleNotFound)
	}
	return factory, nil
}

// References returns all registered module references, for diagnostics
func (r *Registry) References() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var refs []string
	for namespace, ns := range r.namespaces {
		for name := range ns {
			refs = append(refs, namespace+"/"+name)
		}
	}
	return refs
}
