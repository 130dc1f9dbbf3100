// Package vmerr defines the two-level error taxonomy: VM errors
// (infrastructure failures that abort the current thread's frame stack) and
// Java exceptions (in-program conditions a `try`/`catch` could one day
// intercept). The split mirrors the original implementation's
// class_file::error::ClassFileErr and vm::byte_cursor::CursorError enums.
package vmerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// --- VM errors -------------------------------------------------------------

// WrongMagicError reports a classfile whose first four bytes are not
// 0xCAFEBABE.
type WrongMagicError struct {
	Got uint32
}

func (e *WrongMagicError) Error() string {
	return fmt.Sprintf("wrong magic: got 0x%08X, want 0xCAFEBABE", e.Got)
}

// UnknownTagError reports an unrecognized constant-pool tag byte.
type UnknownTagError struct {
	Tag   byte
	Index int
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown constant pool tag %d at index %d", e.Tag, e.Index)
}

// TrailingBytesError reports unconsumed bytes after a structurally complete
// classfile.
type TrailingBytesError struct {
	Remaining int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("trailing bytes: %d unconsumed", e.Remaining)
}

// UnknownAttributeError is non-fatal information: unknown attribute names are
// preserved opaquely, not rejected, so this type exists for completeness of
// the taxonomy and for diagnostics, not as a parse failure.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q", e.Name)
}

// TypeError reports a constant-pool or operand-stack slot whose tag did not
// match what the reader expected.
type TypeError struct {
	Index    int
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at index %d: expected %s, got %s", e.Index, e.Expected, e.Actual)
}

// ConstantNotFoundError reports an out-of-range or empty constant-pool index.
type ConstantNotFoundError struct {
	Index int
}

func (e *ConstantNotFoundError) Error() string {
	return fmt.Sprintf("constant pool index %d not found", e.Index)
}

// InvalidMethodHandleKindError reports a MethodHandle reference_kind outside
// 1..9.
type InvalidMethodHandleKindError struct {
	Kind byte
}

func (e *InvalidMethodHandleKindError) Error() string {
	return fmt.Sprintf("invalid method handle kind %d", e.Kind)
}

// UnknownOpcodeError reports a byte the interpreter's dispatch table has no
// case for at all (distinct from a named-but-Unimplemented opcode).
type UnknownOpcodeError struct {
	Opcode byte
	PC     int
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X at pc=%d", e.Opcode, e.PC)
}

// UnimplementedOpcodeError reports a named opcode entry point that has not
// been filled in yet.
type UnimplementedOpcodeError struct {
	Opcode byte
	Name   string
	PC     int
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("unimplemented opcode %s (0x%02X) at pc=%d", e.Name, e.Opcode, e.PC)
}

// UnsatisfiedLinkError is returned when a native method has no matching
// registry entry at the point it is invoked.
type UnsatisfiedLinkError struct {
	Class, Name, Descriptor string
}

func (e *UnsatisfiedLinkError) Error() string {
	return fmt.Sprintf("unsatisfied link: %s.%s%s", e.Class, e.Name, e.Descriptor)
}

// ClassNotFoundError reports a class source miss.
type ClassNotFoundError struct {
	Name string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class not found: %s", e.Name)
}

// NoSuchMethodError reports a failed method-area lookup.
type NoSuchMethodError struct {
	Class, Name, Descriptor string
}

func (e *NoSuchMethodError) Error() string {
	return fmt.Sprintf("no such method: %s.%s%s", e.Class, e.Name, e.Descriptor)
}

// NoSuchFieldError reports a failed method-area field lookup.
type NoSuchFieldError struct {
	Class, Name string
}

func (e *NoSuchFieldError) Error() string {
	return fmt.Sprintf("no such field: %s.%s", e.Class, e.Name)
}

// LinkageError wraps a decode or resolution failure encountered while
// linking a class, preserving the original cause for errors.As/errors.Is.
type LinkageError struct {
	Class string
	Cause error
}

func (e *LinkageError) Error() string {
	return fmt.Sprintf("linkage error in %s: %v", e.Class, e.Cause)
}

func (e *LinkageError) Unwrap() error { return e.Cause }

// WrapFatal annotates a VM-fatal error (decode or linkage failure) with a
// captured stack trace, for the CLI's top-level error log.
func WrapFatal(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// --- Java exceptions ---------------------------------------------------

// JavaExceptionKind enumerates the Java-level exception types this core
// surfaces; exception-table-driven catch/recovery is out of scope (spec
// Non-goals), so these always propagate to the top of the frame stack.
type JavaExceptionKind int

const (
	NullPointerException JavaExceptionKind = iota
	ArithmeticException
	ArrayIndexOutOfBoundsException
	NegativeArraySizeException
	UnsupportedOperationException
	ClassCastException
	StackOverflowError
)

func (k JavaExceptionKind) String() string {
	switch k {
	case NullPointerException:
		return "java.lang.NullPointerException"
	case ArithmeticException:
		return "java.lang.ArithmeticException"
	case ArrayIndexOutOfBoundsException:
		return "java.lang.ArrayIndexOutOfBoundsException"
	case NegativeArraySizeException:
		return "java.lang.NegativeArraySizeException"
	case UnsupportedOperationException:
		return "java.lang.UnsupportedOperationException"
	case ClassCastException:
		return "java.lang.ClassCastException"
	case StackOverflowError:
		return "java.lang.StackOverflowError"
	default:
		return "java.lang.Error"
	}
}

// JavaException is a thrown-but-uncaught Java-level condition. It carries
// enough context (class, method, pc) to identify the originating site, per
// spec's error-handling requirement.
type JavaException struct {
	Kind               JavaExceptionKind
	Message            string
	Class, Method      string
	PC                 int
}

func (e *JavaException) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (at %s.%s:pc=%d)", e.Kind, e.Message, e.Class, e.Method, e.PC)
	}
	return fmt.Sprintf("%s (at %s.%s:pc=%d)", e.Kind, e.Class, e.Method, e.PC)
}

// NewJavaException constructs a JavaException located at the given site.
func NewJavaException(kind JavaExceptionKind, message, class, method string, pc int) *JavaException {
	return &JavaException{Kind: kind, Message: message, Class: class, Method: method, PC: pc}
}
