package engine

import (
	"fmt"

	"github.com/daimatz/gojvm/internal/vmerr"
	"github.com/daimatz/gojvm/pkg/engine/heap"
	"github.com/daimatz/gojvm/pkg/rt"
	"go.uber.org/zap"
)

// NativeFunc is the shape of one native method implementation. It lives in
// engine (not nativeregistry) so that nativeregistry can depend on engine
// without engine depending back on nativeregistry.
type NativeFunc func(vm *VM, thread *Thread, args []Value) (*Value, error)

// NativeRegistry is the lookup collaborator a VM delegates native method
// calls to (spec §4.5). pkg/nativeregistry.Registry implements this.
type NativeRegistry interface {
	Lookup(class, name, descriptor string) (NativeFunc, bool)
}

// VM is the shared execution context: method area, heap, string pool, and
// native registry, mirroring the teacher's monolithic `vm.VM` but with its
// responsibilities now split across collaborating packages (spec §4.6).
type VM struct {
	Area    *rt.MethodArea
	Heap    *heap.Heap
	Strings *heap.StringPool
	Natives NativeRegistry
	Log     *zap.SugaredLogger
}

// New wires a VM together. Natives is left nil and is set after
// construction (cmd/gojvm assigns nativeregistry.Bootstrap()); while it is
// nil, every native call fails with UnsatisfiedLinkError.
func New(area *rt.MethodArea, log *zap.SugaredLogger) *VM {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &VM{
		Area:    area,
		Heap:    heap.New(),
		Strings: heap.NewStringPool(),
		Log:     log,
	}
}

// Thread drives one call stack. The engine supports exactly one (spec §1's
// Non-goals exclude real concurrency), but the type exists so call depth
// and frame state aren't global.
type Thread struct {
	vm     *VM
	frames []*Frame
}

// NewThread creates a thread bound to vm.
func (vm *VM) NewThread() *Thread {
	return &Thread{vm: vm}
}

func (t *Thread) pushFrame(f *Frame) { t.frames = append(t.frames, f) }
func (t *Thread) popFrame()          { t.frames = t.frames[:len(t.frames)-1] }
func (t *Thread) Depth() int         { return len(t.frames) }

// CallMethod runs method on class with args pushed as its initial locals,
// driving frames until it returns or raises (spec §4.6's invocation
// contract: "returns the callee's return value, or propagates a raised
// Java exception/VM error").
func (t *Thread) CallMethod(class rt.ClassHandle, method *rt.Method, args []Value) (*Value, error) {
	switch method.Body.Kind {
	case rt.BodyAbstract:
		return nil, fmt.Errorf("engine: cannot invoke abstract method %s%s", method.Name, method.Descriptor)
	case rt.BodyNative:
		if t.vm.Natives == nil {
			return nil, &vmerr.UnsatisfiedLinkError{Name: method.Name, Descriptor: method.Descriptor}
		}
		owner, _ := t.vm.Area.ClassByHandle(method.DeclaringClass)
		className := t.vm.Area.Interner().MustResolve(owner.Name())
		fn, ok := t.vm.Natives.Lookup(className, method.Name, method.Descriptor)
		if !ok {
			return nil, &vmerr.UnsatisfiedLinkError{Class: className, Name: method.Name, Descriptor: method.Descriptor}
		}
		return fn(t.vm, t, args)
	default:
		return t.callInterpreted(class, method, args)
	}
}

func (t *Thread) callInterpreted(class rt.ClassHandle, method *rt.Method, args []Value) (*Value, error) {
	if len(t.frames) > 2048 {
		return nil, vmerr.NewJavaException(vmerr.StackOverflowError, "", "", method.Name, 0)
	}
	frame := NewFrame(method, class)
	// Locals are numbered by slot width, not by parameter position: a
	// Long/Double argument claims two consecutive locals (storeLocal reserves
	// the high one), so e.g. static void f(long a, int b) places b at local 2.
	slot := 0
	for _, a := range args {
		storeLocal(frame, slot, a)
		slot++
		if a.IsCategory2() {
			slot++
		}
	}
	t.pushFrame(frame)
	defer t.popFrame()

	for {
		if frame.PC >= len(frame.Code) {
			return nil, nil
		}
		opcode := frame.ReadU8()
		ret, done, err := t.vm.execute(t, frame, opcode)
		if err != nil {
			return nil, err
		}
		if done {
			return ret, nil
		}
	}
}

// execute dispatches exactly one instruction (spec §4.6's exhaustive
// opcode space). name is looked up first so that a byte with no defined
// meaning at all produces UnknownOpcodeError rather than Unimplemented.
func (vm *VM) execute(t *Thread, f *Frame, opcode byte) (*Value, bool, error) {
	name, known := opcodeNames[opcode]
	if !known {
		return nil, false, &vmerr.UnknownOpcodeError{Opcode: opcode, PC: f.PC - 1}
	}
	if fn, ok := dispatchTable[opcode]; ok {
		return fn(vm, t, f)
	}
	return nil, false, &vmerr.UnimplementedOpcodeError{Opcode: opcode, Name: name, PC: f.PC - 1}
}
