// games/outcome.go
package games

import (
	"context"

	"daily-checkin-system/models"
)

// Status classifies the result of one check-in attempt.
type Status string

const (
	StatusClaimed        Status = "claimed"
	StatusAlreadyClaimed Status = "already_claimed"
	StatusAuthFailed     Status = "auth_failed"     // credential rejected; user must re-supply it
	StatusTransientError Status = "transient_error" // network/timeout/5xx; safe to retry next run
	StatusPermanentError Status = "permanent_error" // bad input or unexpected upstream response
)

// Snapshot is the read-only view of one account handed to an adapter.
// Credential is plaintext here; it only exists for the duration of one
// Process call and is never written back.
type Snapshot struct {
	AccountID  string
	OwnerID    string
	Label      string
	GameName   string
	Credential string
}

// Reward is the daily reward attached to a successful claim.
type Reward struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Icon  string `json:"icon,omitempty"`
}

// Profile carries cached account details refreshed from a successful run.
type Profile struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Rank     int    `json:"rank"`
	Region   string `json:"region"`
}

// Outcome is the normalized result for one account in one run. Exactly one
// is produced per processed account; adapters report failures as values,
// never as errors escaping Process.
type Outcome struct {
	AccountID   string `json:"account_id"`
	Label       string `json:"label"`
	GameName    string `json:"game_name"`
	GameDisplay string `json:"game_display"`

	Status      Status `json:"status"`
	Message     string `json:"message"`                // sole user-visible signal
	ErrorDetail string `json:"error_detail,omitempty"` // diagnostics only

	Reward       *Reward  `json:"reward,omitempty"`
	TotalSignDay int      `json:"total_sign_day,omitempty"`
	Profile      *Profile `json:"profile,omitempty"`

	Icon string `json:"icon,omitempty"`
}

// Adapter turns one account's credential into a correctly signed check-in
// sequence for its protocol family.
type Adapter interface {
	Family() string
	Process(ctx context.Context, acct Snapshot, cfg models.Game) Outcome
}

func newOutcome(acct Snapshot, cfg models.Game, status Status, message string) Outcome {
	return Outcome{
		AccountID:   acct.AccountID,
		Label:       acct.Label,
		GameName:    cfg.Name,
		GameDisplay: cfg.DisplayName,
		Status:      status,
		Message:     message,
		Icon:        cfg.IconURL,
	}
}

func failure(acct Snapshot, cfg models.Game, status Status, message, detail string) Outcome {
	out := newOutcome(acct, cfg, status, message)
	out.ErrorDetail = detail
	return out
}
