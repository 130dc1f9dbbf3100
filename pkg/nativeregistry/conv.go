package nativeregistry

import "github.com/daimatz/gojvm/pkg/engine/heap"

func vmHeapHandle(ref uint32) heap.Handle { return heap.Handle(ref) }
