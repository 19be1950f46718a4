package jobs

import (
	"context"
	"encoding/json"
)

type (
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	JobHandlerFunc[T any] func(ctx context.Context, payload T) error
	PeriodicHandlerFunc   func(ctx context.Context) error
)

// NewJobHandler wraps a typed handler function. The handler name is derived
// from the payload type, matching the name the Enqueuer assigns when the same
// payload type is enqueued.
func NewJobHandler[T any](handler JobHandlerFunc[T]) Handler {
	var payload T
	return &oneTimeJobHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

// NewPeriodicHandler wraps a payload-less handler for scheduler-created jobs.
func NewPeriodicHandler(name string, handler PeriodicHandlerFunc) Handler {
	return &periodicJobHandler{
		name:    name,
		handler: handler,
	}
}

type oneTimeJobHandler[T any] struct {
	name    string
	handler JobHandlerFunc[T]
}

func (h *oneTimeJobHandler[T]) Name() string {
	return h.name
}

func (h *oneTimeJobHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return err
	}
	return h.handler(ctx, t)
}

type periodicJobHandler struct {
	name    string
	handler PeriodicHandlerFunc
}

func (h *periodicJobHandler) Name() string {
	return h.name
}

func (h *periodicJobHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.handler(ctx)
}
