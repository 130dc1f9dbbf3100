package classloader

import (
	"fmt"
	"strings"
)

// Chain composes class sources under JVMS §5.3's parent-delegation model:
// each LoadClassBytes call tries every source in order (bootstrap jmod
// first, classpath entries after) and returns the first hit, so a
// classpath class can never shadow a bootstrap one.
type Chain struct {
	sources []ClassSource
}

// ClassSource mirrors rt.ClassSource; declared locally so this package
// does not need to import pkg/rt just to name the interface it implements.
type ClassSource interface {
	LoadClassBytes(binaryName string) ([]byte, error)
}

// NewChain builds a delegation chain. Order matters: earlier sources are
// consulted first.
func NewChain(sources ...ClassSource) *Chain {
	return &Chain{sources: sources}
}

// LoadClassBytes implements rt.ClassSource.
func (c *Chain) LoadClassBytes(binaryName string) ([]byte, error) {
	var lastErr error
	for _, src := range c.sources {
		data, err := src.LoadClassBytes(binaryName)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, fmt.Errorf("classloader: no sources configured to load %s", binaryName)
	}
	return nil, fmt.Errorf("classloader: %s not found in any source: %w", binaryName, lastErr)
}

// New builds the standard bootstrap-then-classpath chain: a jmod reader
// against the given java.base module, falling back to the directories of a
// ';'-separated classpath for user classes, searched in order (spec §4.4).
func New(javaBaseJmod, classPath string) *Chain {
	sources := make([]ClassSource, 0, 2)
	if javaBaseJmod != "" {
		sources = append(sources, NewJmodClassLoader(javaBaseJmod))
	}
	for _, dir := range strings.Split(classPath, ";") {
		if dir != "" {
			sources = append(sources, NewUserClassLoader(dir))
		}
	}
	return NewChain(sources...)
}
