package domain

type EventType string

const (
	EventTypeContainerDied             EventType = "die"
	EventTypeContainerStarted          EventType = "start"
	EventTypeContainerStopped          EventType = "stop"
	EventTypeInitialContainerDetection EventType = "initial_detection"
)

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeContainerDied,
		EventTypeContainerStarted,
		EventTypeContainerStopped,
		EventTypeInitialContainerDetection:
		return true
	}
	return false
}

// IsRemoval reports whether the event ends the container's registration.
func (et EventType) IsRemoval() bool {
	return et == EventTypeContainerDied || et == EventTypeContainerStopped
}

type Container struct {
	Id   string
	Name string   // display name as reported by the runtime, e.g. "/myapp"
	Env  []string // KEY=VALUE
}

type ContainerEvent struct {
	Container Container
	EventType EventType
}
