package dashboard

import "errors"

var (
	// ErrInvalidTransition reports a wallet status edge outside the
	// transition table. Checked before any network call is made.
	ErrInvalidTransition = errors.New("invalid wallet request transition")
	// ErrSaveInFlight reports that another mutating call holds the saving
	// flag. One write at a time, console-wide.
	ErrSaveInFlight = errors.New("a save is already in flight")
	// ErrNoActiveEdit reports a commit or field mutation without an open
	// edit buffer of that kind.
	ErrNoActiveEdit = errors.New("no active edit buffer")
	// ErrUnknownTab reports a tab name outside the fixed set.
	ErrUnknownTab = errors.New("unknown tab")
)
