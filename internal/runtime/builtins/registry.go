package builtins

import (
	"fmt"
	"sort"
	"sync"

	"computeduck/internal/value"
)

// CoreModule is loaded into every registry.
const CoreModule = "core"

// Env provides host services to builtins.
// This interface is implemented by runtime.Env to avoid import cycles.
type Env interface {
	IO() IO
	// Elapsed is the number of seconds since the host started.
	Elapsed() float64
}

// IO is the minimal interface needed by builtin IO functions (e.g. print, input).
type IO interface {
	Print(string)
	Println(string)
	ReadLine() (string, error)
}

// Variadic marks a builtin that accepts any number of arguments.
const Variadic = -1

// Meta contains metadata about a builtin function or constant.
type Meta struct {
	Name       string
	Module     string
	Arity      int
	ParamNames []string // Parameter names in order (must match Arity)
}

// Builtin is a builtin function or constant together with its metadata.
// Arguments arrive dereferenced. Call returns hasReturn=false when the
// builtin produces no value.
type Builtin struct {
	Meta  Meta
	Call  func(env Env, args []value.Value) (hasReturn bool, result value.Value, err error)
	Const *value.Value
}

// catalog holds every builtin registered by the builtin packages, grouped
// by module.
type catalog struct {
	mu      sync.RWMutex
	byName  map[string]*Builtin
	modules map[string][]*Builtin
}

var globalCatalog = &catalog{
	byName:  make(map[string]*Builtin),
	modules: make(map[string][]*Builtin),
}

// Register registers a builtin. This is called automatically by each builtin's init() function.
// Panics if the builtin name is already registered or if metadata is invalid.
func Register(b Builtin) {
	globalCatalog.mu.Lock()
	defer globalCatalog.mu.Unlock()

	if b.Meta.Module == "" {
		b.Meta.Module = CoreModule
	}
	if b.Const == nil {
		if b.Call == nil {
			panic(fmt.Sprintf("builtin %s: neither Call nor Const set", b.Meta.Name))
		}
		if b.Meta.Arity != Variadic && len(b.Meta.ParamNames) != b.Meta.Arity {
			panic(fmt.Sprintf("builtin %s: ParamNames length (%d) != Arity (%d)",
				b.Meta.Name, len(b.Meta.ParamNames), b.Meta.Arity))
		}
	}
	if _, exists := globalCatalog.byName[b.Meta.Name]; exists {
		panic(fmt.Sprintf("builtin name %q is already registered", b.Meta.Name))
	}

	globalCatalog.byName[b.Meta.Name] = &b
	globalCatalog.modules[b.Meta.Module] = append(globalCatalog.modules[b.Meta.Module], &b)
}

// LookupByName finds a catalogued builtin regardless of module.
// Returns nil if not found.
func LookupByName(name string) *Builtin {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()
	return globalCatalog.byName[name]
}

// Modules lists the importable module names.
func Modules() []string {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()
	out := make([]string, 0, len(globalCatalog.modules))
	for name := range globalCatalog.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func moduleBuiltins(module string) ([]*Builtin, bool) {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()
	bs, ok := globalCatalog.modules[module]
	return bs, ok
}

// Registry is the set of builtins visible to one compiler and VM pair.
type Registry struct {
	mu     sync.RWMutex
	loaded map[string]bool
	byName map[string]*value.Builtin
}

// NewRegistry returns a registry with the core module loaded.
func NewRegistry() *Registry {
	r := &Registry{
		loaded: make(map[string]bool),
		byName: make(map[string]*value.Builtin),
	}
	// core is only present when the builtin packages are linked in
	if _, ok := moduleBuiltins(CoreModule); ok {
		_ = r.Import(CoreModule)
	}
	return r
}

// Import makes every builtin of module visible. Importing twice is a no-op.
func (r *Registry) Import(module string) error {
	bs, ok := moduleBuiltins(module)
	if !ok {
		return fmt.Errorf("unknown module %q", module)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded[module] {
		return nil
	}
	for _, b := range bs {
		if _, exists := r.byName[b.Meta.Name]; exists {
			continue
		}
		r.byName[b.Meta.Name] = toValue(b)
	}
	r.loaded[module] = true
	return nil
}

func toValue(b *Builtin) *value.Builtin {
	if b.Const != nil {
		return &value.Builtin{Name: b.Meta.Name, Const: *b.Const, IsConst: true}
	}
	call := b.Call
	meta := b.Meta
	return &value.Builtin{
		Name: meta.Name,
		Fn: func(host interface{}, args []value.Value) (bool, value.Value, error) {
			if meta.Arity != Variadic && len(args) != meta.Arity {
				return false, value.Value{}, fmt.Errorf("%s expects %d arguments, got %d", meta.Name, meta.Arity, len(args))
			}
			env, _ := host.(Env)
			return call(env, args)
		},
	}
}

// Register adds a host function under name.
func (r *Registry) Register(name string, fn value.NativeFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = &value.Builtin{Name: name, Fn: fn}
}

// RegisterConst adds a named constant.
func (r *Registry) RegisterConst(name string, v value.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = &value.Builtin{Name: name, Const: v, IsConst: true}
}

// Has reports whether name is visible.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Lookup finds a visible builtin by name.
func (r *Registry) Lookup(name string) (*value.Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byName[name]
	return b, ok
}

// Names lists the visible builtin names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Loaded lists the imported modules in order.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
