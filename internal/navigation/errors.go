package navigation

import (
	"errors"

	"github.com/dgallion1/docview/internal/doctree"
)

var (
	// ErrNodeNotFound indicates the requested path has no matching node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrFetchFailed indicates a transport, status or decode failure on a fetch.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrNoCurrentNode indicates an operation needs a selected page and none is.
	ErrNoCurrentNode = errors.New("no page selected")

	// ErrSuperseded indicates a newer navigation started while this one was
	// in flight, so its result was discarded.
	ErrSuperseded = errors.New("navigation superseded")

	// ErrAlreadyStarted indicates Start was called while another Start was in
	// flight or after the tree loaded.
	ErrAlreadyStarted = errors.New("already started")
)

// ErrorKind classifies navigation failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNodeNotFound
	KindFetchFailed
	KindIngestionIncomplete
)

func (k ErrorKind) String() string {
	switch k {
	case KindNodeNotFound:
		return "NodeNotFound"
	case KindFetchFailed:
		return "FetchFailed"
	case KindIngestionIncomplete:
		return "IngestionIncomplete"
	}
	return "None"
}

// KindOf returns the kind of err, or KindNone if it is not a navigation error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNodeNotFound):
		return KindNodeNotFound
	case errors.Is(err, ErrFetchFailed):
		return KindFetchFailed
	case errors.Is(err, doctree.ErrIngestionIncomplete):
		return KindIngestionIncomplete
	}
	return KindNone
}
