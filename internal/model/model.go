package model

import "time"

// DesiredEvent is a calendar event computed from the roster. It is
// derived per run and never persisted locally; the owner identity is
// carried only in the human-readable Summary/Description, because the
// remote API has no structured owner field.
type DesiredEvent struct {
	OwnerTag string

	Summary     string
	Description string

	AllDay bool

	// Start / End are in the configured calendar timezone. For all-day
	// events both hold midnight of the same day; the remote API carries
	// all-day status in the flag, not in the duration.
	Start time.Time
	End   time.Time
}

// RemoteEvent is a calendar event as returned by the remote API.
// Read-only from the core's perspective except for delete-by-ID.
type RemoteEvent struct {
	ID string // opaque remote event ID

	Summary string

	AllDay bool

	Start time.Time
	End   time.Time
}
