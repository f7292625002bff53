package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventBuild          EventType = "build"
	EventAction         EventType = "action"
	EventUnresolved     EventType = "unresolved"
	EventHandlerFailure EventType = "handler_failure"
	EventCommit         EventType = "commit"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// BuildEvent is emitted after every Tree Build.
type BuildEvent struct {
	EventBase
	Duration time.Duration `json:"duration"`
	Nodes    int           `json:"nodes"`
	Actions  int           `json:"actions"`
}

// ActionEvent describes an action request, resolved or not.
type ActionEvent struct {
	EventBase
	ActionID string `json:"action_id"`
	Err      error  `json:"-"`
}

// CommitEvent is emitted when a scoped form (or one-shot completion) commits.
type CommitEvent struct {
	EventBase
	Form string   `json:"form"`
	Keys []string `json:"keys"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnBuild          func(context.Context, *BuildEvent)
	OnAction         func(context.Context, *ActionEvent)
	OnUnresolved     func(context.Context, *ActionEvent)
	OnHandlerFailure func(context.Context, *ActionEvent)
	OnCommit         func(context.Context, *CommitEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnBuild:          chain(h.OnBuild, other.OnBuild),
		OnAction:         chain(h.OnAction, other.OnAction),
		OnUnresolved:     chain(h.OnUnresolved, other.OnUnresolved),
		OnHandlerFailure: chain(h.OnHandlerFailure, other.OnHandlerFailure),
		OnCommit:         chain(h.OnCommit, other.OnCommit),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
