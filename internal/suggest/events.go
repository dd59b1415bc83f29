package suggest

// Event names published by the service.
const (
	EventCacheHit         = "suggest.cache_hit"
	EventProviderSuccess  = "suggest.provider_success"
	EventFallback         = "suggest.fallback"
	EventCacheCleared     = "cache.cleared"
	EventAdmissionRejects = "suggest.busy"
)

// Event represents one orchestrator outcome.
// Minimal and stable: name + source and optional fields via key/values.
type Event struct {
	Name   string
	Source string
	Kind   ErrorKind
	Fields map[string]any
}

// EventPublisher receives events from the service. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
