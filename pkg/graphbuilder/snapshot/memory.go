package snapshot

import (
	"slices"
	"sync"
	"time"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

// MemoryStore keeps revisions in memory. Data is lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*memoryProject
	cfg      storeConfig
	closed   bool
}

type memoryProject struct {
	last      int64
	revisions []memoryRevision // oldest first
}

type memoryRevision struct {
	info Info
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*memoryProject),
		cfg:      newStoreConfig(opts),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(project string, data []byte) (Info, error) {
	if project == "" {
		return Info{}, ErrEmptyProject
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		observability.LogSnapshotError(m.cfg.logger, project, "save", ErrStoreClosed)
		return Info{}, ErrStoreClosed
	}

	p := m.projects[project]
	if p == nil {
		p = &memoryProject{}
		m.projects[project] = p
	}
	p.last++

	info := Info{
		Project:   project,
		Revision:  p.last,
		Timestamp: time.Now().UTC(),
		Size:      int64(len(data)),
		Digest:    digest(data),
	}
	p.revisions = append(p.revisions, memoryRevision{info: info, data: slices.Clone(data)})
	if m.cfg.keep > 0 && len(p.revisions) > m.cfg.keep {
		p.revisions = slices.Delete(p.revisions, 0, len(p.revisions)-m.cfg.keep)
	}

	observability.LogSnapshot(m.cfg.logger, project, info.Revision, len(data))
	return info, nil
}

// Load implements Store.
func (m *MemoryStore) Load(project string, revision int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	p, ok := m.projects[project]
	if !ok {
		return nil, ErrNotFound
	}
	for _, r := range p.revisions {
		if r.info.Revision == revision {
			return slices.Clone(r.data), nil
		}
	}
	return nil, ErrNotFound
}

// Latest implements Store.
func (m *MemoryStore) Latest(project string) (Info, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Info{}, nil, ErrStoreClosed
	}
	p, ok := m.projects[project]
	if !ok || len(p.revisions) == 0 {
		return Info{}, nil, ErrNotFound
	}
	r := p.revisions[len(p.revisions)-1]
	return r.info, slices.Clone(r.data), nil
}

// List implements Store.
func (m *MemoryStore) List(project string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	p, ok := m.projects[project]
	if !ok {
		return []Info{}, nil
	}
	infos := make([]Info, len(p.revisions))
	for i, r := range p.revisions {
		infos[i] = r.info
	}
	return infos, nil
}

// Projects implements Store.
func (m *MemoryStore) Projects() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	names := make([]string, 0, len(m.projects))
	for name, p := range m.projects {
		if len(p.revisions) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// DeleteProject implements Store. Revision numbering restarts at 1.
func (m *MemoryStore) DeleteProject(project string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.projects, project)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.projects = nil
	return nil
}

// Len returns the number of stored revisions across all projects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, p := range m.projects {
		count += len(p.revisions)
	}
	return count
}
