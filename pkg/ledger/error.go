package ledger

import "errors"

var (
	// ErrNoSummaries is returned by LatestSummary when no summary exists yet.
	ErrNoSummaries = errors.New("no summaries recorded")

	// ErrNoSession is returned by Session when the channel has no active session.
	ErrNoSession = errors.New("no active session")
)

// ErrAnchorNotFound is returned when a named anchor doesn't exist.
type ErrAnchorNotFound struct {
	Name string
}

func (e ErrAnchorNotFound) Error() string {
	if e.Name == "" {
		return "anchor not found"
	}

	return "anchor not found: " + e.Name
}
