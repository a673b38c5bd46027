package config

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// registeredFile tracks one configuration file the store owns.
type registeredFile struct {
	path      string
	lastWrite time.Time
}

// FileRegistry tracks the configuration files the storage engine has created
// or loaded, so Remove and enumeration never have to guess at paths.
type FileRegistry struct {
	mu     sync.RWMutex
	files  map[string]*registeredFile
	logger *zap.SugaredLogger
}

func NewFileRegistry(logger *zap.SugaredLogger) *FileRegistry {
	return &FileRegistry{
		files:  make(map[string]*registeredFile),
		logger: logger,
	}
}

// Register records the file backing the given key, replacing any earlier
// registration for the same key.
func (r *FileRegistry) Register(key, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[key] = &registeredFile{path: path, lastWrite: time.Now()}
}

// Touch bumps the last-write time of a registered file.
func (r *FileRegistry) Touch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[key]; ok {
		f.lastWrite = time.Now()
	}
}

// Lookup returns the path registered for the key.
func (r *FileRegistry) Lookup(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[key]
	if !ok {
		return "", false
	}
	return f.path, true
}

// Remove drops the registration for the key. The file itself is the
// storage engine's to delete.
func (r *FileRegistry) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[key]; !ok {
		return fmt.Errorf("no file registered for key %q", key)
	}
	delete(r.files, key)
	return nil
}

// Keys returns every registered key.
func (r *FileRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.files))
	for k := range r.files {
		keys = append(keys, k)
	}
	return keys
}
