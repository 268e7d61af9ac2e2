package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go-psa/internal/repository"
)

// SaveFunc persists one transformed record for a target entity.
type SaveFunc func(ctx context.Context, data map[string]interface{}) error

// RecordSink dispatches persistence by target entity name through a
// handler map registered at startup, so an unknown entity fails when the
// import is configured rather than midway through row processing.
type RecordSink struct {
	handlers map[string]SaveFunc
}

func NewRecordSink() *RecordSink {
	return &RecordSink{handlers: make(map[string]SaveFunc)}
}

// Register installs the handler for an entity. Registration happens once
// at startup; duplicate registration is a programming error.
func (s *RecordSink) Register(entity string, fn SaveFunc) error {
	if _, exists := s.handlers[entity]; exists {
		return fmt.Errorf("entity %q already registered", entity)
	}
	s.handlers[entity] = fn
	return nil
}

// Known reports whether the entity has a handler.
func (s *RecordSink) Known(entity string) bool {
	_, ok := s.handlers[entity]
	return ok
}

// Entities lists the registered entity names.
func (s *RecordSink) Entities() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save persists one record through the entity's handler.
func (s *RecordSink) Save(ctx context.Context, entity string, data map[string]interface{}) error {
	fn, ok := s.handlers[entity]
	if !ok {
		return fmt.Errorf("unknown target entity %q (known: %s)", entity, strings.Join(s.Entities(), ", "))
	}
	return fn(ctx, data)
}

// DefaultSink registers the known target entities, each persisting into
// its own collection through the entity repository.
func DefaultSink(entities repository.EntityRepository) *RecordSink {
	sink := NewRecordSink()
	for _, name := range []string{"account", "user", "ticket", "timeEntry", "billingRate"} {
		entity := name
		sink.Register(entity, func(ctx context.Context, data map[string]interface{}) error {
			return entities.Insert(ctx, entity, data)
		})
	}
	return sink
}
