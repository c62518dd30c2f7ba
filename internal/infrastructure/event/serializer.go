package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/truthsource/backend/internal/domain/shared"
)

// EventSerializer converts domain events to and from their outbox JSON
// payloads. Concrete event types must be registered before deserialization;
// the schema_version field travels inside the payload itself.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// Register maps an event type name to a concrete Go type. The name must match
// what EventType() returns on the event.
func (s *EventSerializer) Register(eventType string, prototype shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize encodes a domain event as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes a payload into a new instance of the registered type
func (s *EventSerializer) Deserialize(eventType string, payload []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	instance := reflect.New(t).Interface()
	if err := json.Unmarshal(payload, instance); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}

	event, ok := instance.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %s does not implement DomainEvent", eventType)
	}
	return event, nil
}

// IsRegistered reports whether an event type has a registered Go type
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event type names, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for eventType := range s.registry {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}
