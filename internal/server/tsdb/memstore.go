package tsdb

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

// ErrFieldRequired is returned by Query when no field is given.
var ErrFieldRequired = errors.New("field is required")

// MemStore is a thread-safe in-memory time-series engine with optional
// per-namespace JSON persistence.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [namespace][measurement] -> points, ordered by insertion.
	data      map[string]map[string][]models.Point
	persister *Persistence
	logger    logging.Logger
	wg        sync.WaitGroup
	now       func() time.Time
}

// Option customizes MemStore construction.
type Option func(*MemStore)

// WithLogger makes the store report background persistence failures.
func WithLogger(l logging.Logger) Option {
	return func(m *MemStore) {
		m.logger = l
	}
}

// NewMemStore initializes a store. It accepts existing data (from
// Persistence.LoadAll) and an optional persister.
func NewMemStore(initialData map[string]map[string][]models.Point, p *Persistence, opts ...Option) *MemStore {
	if initialData == nil {
		initialData = make(map[string]map[string][]models.Point)
	}
	m := &MemStore{
		data:      initialData,
		persister: p,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait blocks until all background persistence tasks complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

func (m *MemStore) Provision(namespace string) error {
	m.mu.Lock()
	if _, ok := m.data[namespace]; ok {
		m.mu.Unlock()
		return nil
	}
	m.data[namespace] = make(map[string][]models.Point)
	snapshot := m.copyNamespace(namespace)
	m.mu.Unlock()

	m.persist(namespace, snapshot)
	return nil
}

func (m *MemStore) Exists(namespace string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[namespace]
	return ok
}

func (m *MemStore) Namespace(name string) (Handle, error) {
	if !m.Exists(name) {
		return nil, common.ErrNamespaceNotFound
	}
	return &memHandle{store: m, name: name}, nil
}

func (m *MemStore) Namespaces() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *MemStore) Dump(namespace string) (map[string][]models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.data[namespace]; !ok {
		return nil, common.ErrNamespaceNotFound
	}
	return m.copyNamespace(namespace), nil
}

func (m *MemStore) write(namespace string, points []models.Point) error {
	for _, p := range points {
		if p.Measurement == "" || len(p.Fields) == 0 {
			return common.ErrWriteRejected
		}
	}

	m.mu.Lock()
	ns, ok := m.data[namespace]
	if !ok {
		m.mu.Unlock()
		return common.ErrNamespaceNotFound
	}
	for _, p := range points {
		if p.Timestamp.IsZero() {
			p.Timestamp = m.now()
		}
		ns[p.Measurement] = append(ns[p.Measurement], p)
	}
	snapshot := m.copyNamespace(namespace)
	m.mu.Unlock()

	m.persist(namespace, snapshot)
	return nil
}

func (m *MemStore) query(namespace, measurement, field string, start, end time.Time) (*models.QueryResult, error) {
	if field == "" {
		return nil, ErrFieldRequired
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.data[namespace]
	if !ok {
		return nil, common.ErrNamespaceNotFound
	}

	type row struct {
		ts          time.Time
		measurement string
		value       any
	}

	var rows []row
	for name, points := range ns {
		if measurement != Wildcard && measurement != name {
			continue
		}
		for _, p := range points {
			val, ok := p.Fields[field]
			if !ok {
				continue
			}
			if !start.IsZero() && p.Timestamp.Before(start) {
				continue
			}
			if !end.IsZero() && p.Timestamp.After(end) {
				continue
			}
			rows = append(rows, row{ts: p.Timestamp, measurement: name, value: val})
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	result := &models.QueryResult{
		Columns: []string{"time", "measurement", field},
		Values:  make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		result.Values = append(result.Values, []any{r.ts, r.measurement, r.value})
	}
	return result, nil
}

// copyNamespace deep-copies one namespace so it can be persisted safely in
// the background. Callers must hold at least a read lock.
func (m *MemStore) copyNamespace(namespace string) map[string][]models.Point {
	src := m.data[namespace]
	dst := make(map[string][]models.Point, len(src))
	for measurement, points := range src {
		cp := make([]models.Point, len(points))
		copy(cp, points)
		dst[measurement] = cp
	}
	return dst
}

func (m *MemStore) persist(namespace string, snapshot map[string][]models.Point) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.persister.SaveNamespace(namespace, snapshot); err != nil && m.logger != nil {
			m.logger.Warn(context.Background(), "namespace persistence failed",
				"namespace", namespace, "error", err.Error())
		}
	}()
}

type memHandle struct {
	store *MemStore
	name  string
}

func (h *memHandle) Write(points []models.Point) error {
	return h.store.write(h.name, points)
}

func (h *memHandle) Query(measurement, field string, start, end time.Time) (*models.QueryResult, error) {
	return h.store.query(h.name, measurement, field, start, end)
}
