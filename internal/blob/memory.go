package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Memory keeps objects in process memory under a mem:// reference scheme.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

const memScheme = "mem://"

func (m *Memory) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return memScheme + key, nil
}

func (m *Memory) KeyOf(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, memScheme)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignRef, ref)
	}
	return key, nil
}

func (m *Memory) Delete(_ context.Context, ref string) error {
	key, err := m.KeyOf(ref)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) Presign(_ context.Context, ref string, ttl time.Duration) (string, error) {
	if _, err := m.KeyOf(ref); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?expires=%d", ref, int(ttl.Seconds())), nil
}

// Object returns a stored body, for tests and local inspection.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
