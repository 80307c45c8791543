package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary consumed by the ingestion pipeline.
// Implementations never delete records.
type Store interface {
	FindModulesByCategory(ctx context.Context, category ModuleType) ([]Module, error)
	FindTopicByModuleAndTitle(ctx context.Context, moduleID int64, title string) (*Topic, bool, error)
	FindQuestionsByTopicOrdered(ctx context.Context, topicID int64) ([]Question, error)

	SaveModule(ctx context.Context, m *Module) error
	SaveTopic(ctx context.Context, t *Topic) error
	SaveQuestion(ctx context.Context, q *Question) error

	ListModules(ctx context.Context) ([]Module, error)
	ListTopics(ctx context.Context, moduleID int64) ([]Topic, error)

	// InTx runs fn against a transactional view of the store. Nested calls
	// on the view open a savepoint: an error from the inner fn rolls back
	// only the inner writes.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// UserStore persists portal accounts.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*User, bool, error)
	SaveUser(ctx context.Context, u *User) error
}

type memoryData struct {
	modules   []Module
	topics    []Topic
	questions []Question
	users     []User
	nextID    int64
}

func (d memoryData) clone() memoryData {
	return memoryData{
		modules:   slices.Clone(d.modules),
		topics:    slices.Clone(d.topics),
		questions: slices.Clone(d.questions),
		users:     slices.Clone(d.users),
		nextID:    d.nextID,
	}
}

// MemoryStore is an in-memory implementation of Store and UserStore.
// Transactions snapshot the data and restore it on error; they are not
// isolated from concurrent writers.
type MemoryStore struct {
	data memoryData
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) FindModulesByCategory(_ context.Context, category ModuleType) ([]Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Module
	for _, m := range s.data.modules {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindTopicByModuleAndTitle(_ context.Context, moduleID int64, title string) (*Topic, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.data.topics {
		if t.ModuleID == moduleID && t.Title == title {
			found := t
			return &found, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStore) FindQuestionsByTopicOrdered(_ context.Context, topicID int64) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Question
	for _, q := range s.data.questions {
		if q.TopicID == topicID {
			out = append(out, q)
		}
	}
	slices.SortStableFunc(out, func(a, b Question) int { return a.OrderIndex - b.OrderIndex })
	return out, nil
}

func (s *MemoryStore) SaveModule(_ context.Context, m *Module) error {
	if !m.Category.Valid() {
		return fmt.Errorf("invalid module category %q", m.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.allocID()
	s.data.modules = append(s.data.modules, *m)
	return nil
}

func (s *MemoryStore) SaveTopic(_ context.Context, t *Topic) error {
	if t.Title == "" {
		return fmt.Errorf("topic title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasModule(t.ModuleID) {
		return fmt.Errorf("module %d: %w", t.ModuleID, ErrNotFound)
	}
	for _, existing := range s.data.topics {
		if existing.ModuleID == t.ModuleID && existing.Title == t.Title {
			return fmt.Errorf("topic %q already exists in module %d", t.Title, t.ModuleID)
		}
	}

	t.ID = s.allocID()
	s.data.topics = append(s.data.topics, *t)
	return nil
}

func (s *MemoryStore) SaveQuestion(_ context.Context, q *Question) error {
	if q.Title == "" {
		return fmt.Errorf("question title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasTopic(q.TopicID) {
		return fmt.Errorf("topic %d: %w", q.TopicID, ErrNotFound)
	}

	q.ID = s.allocID()
	s.data.questions = append(s.data.questions, *q)
	return nil
}

func (s *MemoryStore) ListModules(_ context.Context) ([]Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.data.modules)
	slices.SortStableFunc(out, func(a, b Module) int { return a.OrderIndex - b.OrderIndex })
	return out, nil
}

func (s *MemoryStore) ListTopics(_ context.Context, moduleID int64) ([]Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Topic
	for _, t := range s.data.topics {
		if t.ModuleID == moduleID {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Topic) int { return a.OrderIndex - b.OrderIndex })
	return out, nil
}

// InTx restores the snapshot taken on entry when fn returns an error or
// panics. A panic is re-raised after the restore.
func (s *MemoryStore) InTx(_ context.Context, fn func(tx Store) error) error {
	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	restore := func() {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}
	defer func() {
		if v := recover(); v != nil {
			restore()
			panic(v)
		}
	}()

	if err := fn(s); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.data.users {
		if u.Username == username {
			found := u
			return &found, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u *User) error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.users {
		if existing.Username == u.Username {
			return fmt.Errorf("user %q already exists", u.Username)
		}
	}
	u.ID = s.allocID()
	s.data.users = append(s.data.users, *u)
	return nil
}

// Counts returns the number of stored modules, topics and questions.
func (s *MemoryStore) Counts() (modules, topics, questions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.modules), len(s.data.topics), len(s.data.questions)
}

func (s *MemoryStore) allocID() int64 {
	s.data.nextID++
	return s.data.nextID
}

func (s *MemoryStore) hasModule(id int64) bool {
	return slices.ContainsFunc(s.data.modules, func(m Module) bool { return m.ID == id })
}

func (s *MemoryStore) hasTopic(id int64) bool {
	return slices.ContainsFunc(s.data.topics, func(t Topic) bool { return t.ID == id })
}
