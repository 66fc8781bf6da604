package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/roster"
	"shiftcal/internal/shift"
)

// TokenScope is the credential scope the engine requests once per run.
const TokenScope = "calendar"

// TokenSource produces a bearer credential for a requested scope.
type TokenSource interface {
	Token(ctx context.Context, scope string) (string, error)
}

// Gateway performs list/create/delete of remote calendar events. The
// engine only ever touches the network through it.
type Gateway interface {
	ListEvents(ctx context.Context, token string, from, until time.Time) ([]model.RemoteEvent, error)
	CreateEvent(ctx context.Context, token string, ev model.DesiredEvent) (model.RemoteEvent, error)
	DeleteEvent(ctx context.Context, token, eventID string) error
}

// Engine converges the remote calendar toward the roster's desired
// state: delete every event owned by this process in the month window,
// then recreate the full desired set. Runs are idempotent up to the
// fidelity of the ownership filter.
type Engine struct {
	Tokens   TokenSource
	Gateway  Gateway
	Expander *shift.Expander

	// Pacing is the minimum spacing between successive remote write
	// calls. Zero disables pacing (tests).
	Pacing time.Duration

	// Unauthorized reports whether a gateway error means the credential
	// expired; the engine then re-acquires the token and retries that
	// single call once. Nil disables the retry.
	Unauthorized func(error) bool

	// NotFound reports whether a delete error means the event was
	// already gone, which counts as a successful delete. Nil treats
	// every delete error as a failure.
	NotFound func(error) bool
}

// Reconcile runs one full reconciliation for the roster's month. The
// ownership filter uses the expander's owner tag, the same tag the
// expander stamps into every summary it produces, so created events
// are always visible to the next run's filter.
//
// Fatal errors (returned with a nil ledger): token acquisition and the
// initial window fetch; no partial progress is meaningful without
// either. Per-item delete/create failures are recorded in the ledger
// and never abort the run.
func (e *Engine) Reconcile(ctx context.Context, r *roster.Roster) (*Ledger, error) {
	if e.Expander == nil {
		return nil, errors.New("reconcile: expander is required")
	}
	ownerTag := e.Expander.OwnerTag
	if ownerTag == "" {
		return nil, errors.New("reconcile: expander owner tag is empty")
	}

	ledger := &Ledger{
		Month:     fmt.Sprintf("%04d-%02d", r.Year, int(r.Month)),
		OwnerTag:  ownerTag,
		StartedAt: time.Now(),
		Attempted: len(r.Entries),
	}

	token, err := e.Tokens.Token(ctx, TokenScope)
	if err != nil {
		return nil, fmt.Errorf("reconcile: acquire token: %w", err)
	}

	from, until := MonthWindow(r.Year, r.Month, e.Expander.Location)

	var remote []model.RemoteEvent
	err = e.withRefresh(ctx, &token, func(tok string) error {
		var lerr error
		remote, lerr = e.Gateway.ListEvents(ctx, tok, from, until)
		return lerr
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: list window %s: %w", ledger.Month, err)
	}

	owned := filterOwned(remote, ownerTag)
	appLog.Info("reconcile window fetched",
		"month", ledger.Month,
		"remote_events", len(remote),
		"owned_events", len(owned),
	)

	pace := &pacer{interval: e.Pacing}

	// Phase 1: delete everything we own. One failed delete never blocks
	// the rest.
	for _, ev := range owned {
		if err := pace.wait(ctx); err != nil {
			ledger.FinishedAt = time.Now()
			return ledger, err
		}

		err := e.withRefresh(ctx, &token, func(tok string) error {
			return e.Gateway.DeleteEvent(ctx, tok, ev.ID)
		})
		if err != nil && e.NotFound != nil && e.NotFound(err) {
			// Already gone remotely; converged either way.
			err = nil
		}
		if err != nil {
			appLog.Error("delete failed", err, "event_id", ev.ID, "summary", ev.Summary)
			ledger.record(Outcome{
				Kind:   OutcomeDeleteFailed,
				Detail: fmt.Sprintf("%s: %v", ev.Summary, err),
			})
			continue
		}
		ledger.Deleted++
		appLog.Info("deleted event", "event_id", ev.ID, "summary", ev.Summary)
	}

	// Phase 2: recreate the desired set from the roster. Unknown codes
	// are reportable skips; a failed create never blocks the rest.
	for _, entry := range r.Entries {
		desired, err := e.Expander.Expand(r.Year, r.Month, entry.Day, entry.Code)
		if err != nil {
			var unknown *shift.UnknownCodeError
			if errors.As(err, &unknown) {
				appLog.Error("unknown shift code, skipping day", err, "day", entry.Day)
				ledger.record(Outcome{
					Day:    entry.Day,
					Code:   entry.Code,
					Kind:   OutcomeSkipped,
					Detail: err.Error(),
				})
				continue
			}
			ledger.record(Outcome{Day: entry.Day, Code: entry.Code, Kind: OutcomeCreateFailed, Detail: err.Error()})
			continue
		}

		if err := pace.wait(ctx); err != nil {
			ledger.FinishedAt = time.Now()
			return ledger, err
		}

		err = e.withRefresh(ctx, &token, func(tok string) error {
			_, cerr := e.Gateway.CreateEvent(ctx, tok, desired)
			return cerr
		})
		if err != nil {
			appLog.Error("create failed", err, "day", entry.Day, "code", entry.Code)
			ledger.record(Outcome{
				Day:    entry.Day,
				Code:   entry.Code,
				Kind:   OutcomeCreateFailed,
				Detail: err.Error(),
			})
			continue
		}
		ledger.Created++
		ledger.record(Outcome{Day: entry.Day, Code: entry.Code, Kind: OutcomeCreated})
		appLog.Info("created event", "day", entry.Day, "code", entry.Code)
	}

	ledger.FinishedAt = time.Now()
	appLog.Info("reconcile finished",
		"month", ledger.Month,
		"attempted", ledger.Attempted,
		"created", ledger.Created,
		"deleted", ledger.Deleted,
		"failures", len(ledger.Failures()),
	)
	return ledger, nil
}

// withRefresh runs call with the current token; on an expired-credential
// error it re-acquires the token once and retries that single call.
func (e *Engine) withRefresh(ctx context.Context, token *string, call func(tok string) error) error {
	err := call(*token)
	if err == nil || e.Unauthorized == nil || !e.Unauthorized(err) {
		return err
	}

	appLog.Info("credential rejected, refreshing token once")
	fresh, terr := e.Tokens.Token(ctx, TokenScope)
	if terr != nil {
		// Keep the original call error; the refresh failure is logged.
		appLog.Error("token refresh failed", terr)
		return err
	}
	*token = fresh
	return call(*token)
}

// filterOwned selects the remote events this process manages: the owner
// tag appearing as a substring of the title. That is the entire
// ownership test; the remote API has no structured owner field, so a
// changed tag between runs leaves orphans behind.
func filterOwned(events []model.RemoteEvent, ownerTag string) []model.RemoteEvent {
	var owned []model.RemoteEvent
	for _, ev := range events {
		if strings.Contains(ev.Summary, ownerTag) {
			owned = append(owned, ev)
		}
	}
	return owned
}
