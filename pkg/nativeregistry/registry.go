// Package nativeregistry implements the VM's native method dispatch table
// (spec §4.5), generalizing the teacher's inline executeNativeMethod switch
// statement into a real map keyed by (class, name, descriptor), with class
// == "" matching any receiver (grounded on the original implementation's
// native_registry.rs).
package nativeregistry

import (
	"sync"

	"github.com/daimatz/gojvm/pkg/engine"
)

// Key identifies one native method entry. Class == "" means "matches any
// receiver with this name and descriptor" (spec §4.5's internal-intrinsic
// form).
type Key struct {
	Class      string
	Name       string
	Descriptor string
}

// Func is the behavior bound to a Key.
type Func = engine.NativeFunc

// Registry is a concurrency-safe map[Key]Func; Register is exported so a
// `registerNatives` stub can add entries at runtime, not just at VM boot
// (SPEC_FULL.md's self-registration supplement).
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]Func
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[Key]Func)}
}

// Register binds fn to key, overwriting any existing entry.
func (r *Registry) Register(key Key, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = fn
}

// Lookup implements engine.NativeRegistry: exact (class, name, descriptor)
// first, then the any-receiver form.
func (r *Registry) Lookup(class, name, descriptor string) (engine.NativeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.entries[Key{Class: class, Name: name, Descriptor: descriptor}]; ok {
		return fn, true
	}
	if fn, ok := r.entries[Key{Name: name, Descriptor: descriptor}]; ok {
		return fn, true
	}
	return nil, false
}

// Bootstrap builds a Registry populated with every intrinsic this engine
// implements, relocated from the teacher's executeNativeMethod switch into
// individual registrar functions grouped by JDK package.
func Bootstrap() *Registry {
	r := New()
	registerLangIntrinsics(r)
	registerIOIntrinsics(r)
	registerStringIntrinsics(r)
	registerBoxingIntrinsics(r)
	registerCollectionIntrinsics(r)
	return r
}
