package object

// EventKind identifies a lifecycle event emitted by a runtime instance to
// its registered links. Events from one instance are delivered in the
// order they were generated.
type EventKind string

const (
	// EventLoaded is emitted once after the start hook and initial persist.
	EventLoaded EventKind = "loaded"
	// EventUpdated is emitted after a patch actually changed the object.
	EventUpdated EventKind = "updated"
	// EventEnabled is emitted when the runtime enabled flag flips.
	EventEnabled EventKind = "enabled"
	// EventStatus is emitted when a type behavior sets a custom status.
	EventStatus EventKind = "status"
	// EventChildDown is emitted when a monitored child process exits.
	EventChildDown EventKind = "child_down"
	// EventUnloaded is emitted when the session reaches its terminal state.
	EventUnloaded EventKind = "unloaded"
	// EventRecord is the terminal event carrying the full timeline.
	EventRecord EventKind = "record"
)

// Event is one lifecycle notification.
type Event struct {
	Kind     EventKind      `json:"kind"`
	ObjectID string         `json:"object_id"`
	Path     string         `json:"path"`
	Payload  map[string]any `json:"payload,omitempty"`
}
