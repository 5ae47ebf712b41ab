package wsession

import "fmt"

type EventType byte

const (
	EventOpened EventType = iota + 1
	EventClosed
	EventDataReceived
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventDataReceived:
		return "data_received"
	default:
		return fmt.Sprintf("event(%d)", byte(t))
	}
}

// Event is delivered to the active stream subscriber. Err is only set on
// EventClosed and Payload only on EventDataReceived.
type Event struct {
	Type    EventType
	Err     error
	Payload Payload
}

func (e Event) String() string {
	switch e.Type {
	case EventClosed:
		if e.Err != nil {
			return fmt.Sprintf("Event{type=%s,err=%s}", e.Type, e.Err)
		}
	case EventDataReceived:
		return fmt.Sprintf("Event{type=%s,payload=%s}", e.Type, e.Payload)
	}
	return fmt.Sprintf("Event{type=%s}", e.Type)
}

func openedEvent() Event {
	return Event{Type: EventOpened}
}

func closedEvent(err error) Event {
	return Event{Type: EventClosed, Err: err}
}

func dataEvent(p Payload) Event {
	return Event{Type: EventDataReceived, Payload: p}
}
