// Package rt implements the method area / class linker (spec §4.4): the
// in-memory runtime type system built on top of the structural classfile
// decoder and the constant-pool resolver.
package rt

// ClassHandle is a stable, non-zero integer identifying a linked class for
// the lifetime of the VM (spec §3's "Class record" identity, spec §4.4's
// "opaque class handle").
type ClassHandle uint32

// MethodHandle is a stable identifier for a resolved method.
type MethodHandle uint32

// FieldHandle is a stable identifier for a resolved field.
type FieldHandle uint32
