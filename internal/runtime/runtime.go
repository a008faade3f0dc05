package runtime

import (
	"computeduck/internal/runtime/builtins"
	// Import all builtin packages to trigger their init() functions for self-registration
	_ "computeduck/internal/runtime/builtins/collections"
	_ "computeduck/internal/runtime/builtins/hash"
	_ "computeduck/internal/runtime/builtins/io"
	_ "computeduck/internal/runtime/builtins/json"
	_ "computeduck/internal/runtime/builtins/math"
	_ "computeduck/internal/runtime/builtins/meta"
	_ "computeduck/internal/runtime/builtins/strings"
	_ "computeduck/internal/runtime/builtins/time"
	_ "computeduck/internal/runtime/builtins/uuid"
)

// NewRegistry returns a builtin registry with every builtin package linked
// in and the core module loaded.
func NewRegistry() *builtins.Registry {
	return builtins.NewRegistry()
}
