// Package controller holds the page state machines of the console: what each
// page has fetched, what the user has typed, and what happens on submit.
// Controllers never hold their lock across a backend call.
package controller

import "errors"

var (
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
	ErrNoSelection     = errors.New("no employee selected")
	ErrUnknownEmployee = errors.New("employee not in list")
	ErrStale           = errors.New("response superseded by a newer request")
)

// Notifier receives the transient messages a page shows after an action.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

type discardNotifier struct{}

func (discardNotifier) Success(string) {}
func (discardNotifier) Error(string)   {}

func notifierOrDiscard(n Notifier) Notifier {
	if n == nil {
		return discardNotifier{}
	}
	return n
}
