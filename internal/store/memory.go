package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local Store used by tests and local runs.
type Memory struct {
	mu   sync.RWMutex
	data map[Collection]map[string]Document
}

func NewMemory() *Memory {
	return &Memory{data: make(map[Collection]map[string]Document)}
}

func (m *Memory) Create(_ context.Context, coll Collection, doc Document) (Document, error) {
	stored, id, err := withID(coll, doc)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[coll] == nil {
		m.data[coll] = make(map[string]Document)
	}
	m.data[coll][id] = clone(stored)
	return stored, nil
}

func (m *Memory) Get(_ context.Context, coll Collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[coll][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (m *Memory) List(_ context.Context, coll Collection) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(coll, func(Document) bool { return true }), nil
}

func (m *Memory) FindByAttribute(_ context.Context, coll Collection, attr string, value any) ([]Document, error) {
	want, err := normalize(value)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(coll, func(d Document) bool {
		got, ok := d[attr]
		return ok && valuesEqual(got, want)
	}), nil
}

// sorted returns matching documents ordered by id. Callers hold the lock.
func (m *Memory) sorted(coll Collection, keep func(Document) bool) []Document {
	ids := make([]string, 0, len(m.data[coll]))
	for id, doc := range m.data[coll] {
		if keep(doc) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(m.data[coll][id]))
	}
	return out
}

func (m *Memory) Update(ctx context.Context, coll Collection, id string, fields Document) (Document, error) {
	return m.update(coll, id, fields, nil)
}

func (m *Memory) UpdateIf(ctx context.Context, coll Collection, id string, fields Document, cond Condition) (Document, error) {
	return m.update(coll, id, fields, &cond)
}

func (m *Memory) update(coll Collection, id string, fields Document, cond *Condition) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[coll][id]
	if !ok {
		return nil, ErrNotFound
	}
	if cond != nil {
		want, err := normalize(cond.Equals)
		if err != nil {
			return nil, err
		}
		if !valuesEqual(doc[cond.Attr], want) {
			return nil, ErrConditionFailed
		}
	}
	next, err := merge(coll, doc, fields)
	if err != nil {
		return nil, err
	}
	m.data[coll][id] = next
	return clone(next), nil
}

func (m *Memory) Delete(_ context.Context, coll Collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[coll][id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.data[coll], id)
	return doc, nil
}
