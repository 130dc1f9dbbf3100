package classloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// UserClassLoader reads .class files off a directory classpath, the
// adapted form of the teacher's UserClassLoader. Binary names use '/'
// as JVMS requires; they are translated to the host's path separator
// via filepath.Join.
type UserClassLoader struct {
	ClassPath string

	mu    sync.Mutex
	cache map[string][]byte
}

// NewUserClassLoader creates a loader rooted at classPath.
func NewUserClassLoader(classPath string) *UserClassLoader {
	return &UserClassLoader{ClassPath: classPath, cache: make(map[string][]byte)}
}

// LoadClassBytes implements rt.ClassSource.
func (cl *UserClassLoader) LoadClassBytes(binaryName string) ([]byte, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if data, ok := cl.cache[binaryName]; ok {
		return data, nil
	}

	path := filepath.Join(cl.ClassPath, filepath.FromSlash(binaryName)+".class")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classloader: %s not found on classpath %s: %w", binaryName, cl.ClassPath, err)
	}
	cl.cache[binaryName] = data
	return data, nil
}
