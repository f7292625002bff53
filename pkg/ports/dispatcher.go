package ports

import "github.com/aretw0/arbor/pkg/domain"

// DiffDispatcher receives the Store changes of every request.
// The HTTP adapter implements it to push diffs to event stream subscribers.
type DiffDispatcher interface {
	Dispatch(diff *domain.StoreDiff)
}
