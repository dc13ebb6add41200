package events

import (
	"context"
	"sync"
)

// Published is an event captured by Recorder.
type Published struct {
	RoutingKey string
	Body       interface{}
}

// Recorder keeps published events in memory. Tests use it to assert on side effects.
type Recorder struct {
	mu     sync.Mutex
	Events []Published
}

func (r *Recorder) Publish(ctx context.Context, routingKey string, body interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Published{RoutingKey: routingKey, Body: body})
	return nil
}

func (r *Recorder) Close() {}

// Keys returns the routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.Events))
	for i, e := range r.Events {
		keys[i] = e.RoutingKey
	}
	return keys
}
