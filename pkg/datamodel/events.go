package datamodel

import (
	"errors"
	"fmt"
)

// EventPublisher records events emitted by clusters. Payloads are the
// typed event structs of each cluster; the publisher decides how they are
// stored or encoded.
type EventPublisher interface {
	// PublishEvent emits an event and returns its assigned EventNumber.
	PublishEvent(
		endpoint EndpointID,
		cluster ClusterID,
		eventID EventID,
		priority EventPriority,
		data any,
	) (EventNumber, error)
}

// EventSource is a mixin to add event capabilities to any cluster.
// Embed it alongside ClusterBase for clusters that emit events.
//
//	type MyCluster struct {
//	    *datamodel.ClusterBase
//	    *datamodel.EventSource
//	}
type EventSource struct {
	endpoint  EndpointID
	cluster   ClusterID
	publisher EventPublisher

	// Event IDs this cluster is allowed to emit.
	validEvents map[EventID]EventEntry
}

// NewEventSource creates a new EventSource.
// Call Bind() to connect it to a cluster and publisher.
func NewEventSource() *EventSource {
	return &EventSource{
		validEvents: make(map[EventID]EventEntry),
	}
}

// Bind connects the EventSource to its parent cluster and publisher.
func (e *EventSource) Bind(endpoint EndpointID, cluster ClusterID, publisher EventPublisher) {
	e.endpoint = endpoint
	e.cluster = cluster
	e.publisher = publisher
}

// RegisterEvent adds an event to internal validation.
func (e *EventSource) RegisterEvent(entry EventEntry) {
	if e.validEvents == nil {
		e.validEvents = make(map[EventID]EventEntry)
	}
	e.validEvents[entry.ID] = entry
}

// RegisterEvents adds multiple events to internal validation.
func (e *EventSource) RegisterEvents(entries []EventEntry) {
	for _, entry := range entries {
		e.RegisterEvent(entry)
	}
}

// HasEvent returns true if the event ID is registered.
func (e *EventSource) HasEvent(eventID EventID) bool {
	_, ok := e.validEvents[eventID]
	return ok
}

// Emit publishes an event with the given payload struct.
//
// Returns the assigned EventNumber, or error if the publisher is not bound
// or the event ID is not registered.
func (e *EventSource) Emit(eventID EventID, priority EventPriority, payload any) (EventNumber, error) {
	if e.publisher == nil {
		return 0, ErrEventPublisherNotBound
	}

	if len(e.validEvents) > 0 {
		if _, ok := e.validEvents[eventID]; !ok {
			return 0, fmt.Errorf("%w: event ID 0x%04X not registered for cluster 0x%04X",
				ErrEventNotRegistered, uint32(eventID), uint32(e.cluster))
		}
	}

	return e.publisher.PublishEvent(e.endpoint, e.cluster, eventID, priority, payload)
}

// IsBound returns true if the EventSource is bound to a publisher.
func (e *EventSource) IsBound() bool {
	return e.publisher != nil
}

// Event source errors.
var (
	ErrEventPublisherNotBound = errors.New("event publisher not bound")
	ErrEventNotRegistered     = errors.New("event not registered")
)
