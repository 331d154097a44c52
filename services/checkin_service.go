// services/checkin_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"daily-checkin-system/games"
	"daily-checkin-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a run is triggered while another is
// still walking the account list. Runs never overlap; overlapping would
// reuse credentials concurrently and risk duplicate-claim races upstream.
var ErrRunInProgress = errors.New("a check-in run is already in progress")

// Decryptor turns the stored ciphertext credential into plaintext for the
// duration of one account's processing. Encryption at rest belongs to the
// persistence side; the orchestrator is only handed this capability.
type Decryptor func(ciphertext string) (string, error)

// RunReport is the aggregated result of one full pass over all eligible
// accounts. It is built fully in memory and published exactly once; an
// aborted run publishes nothing.
type RunReport struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Outcomes  []games.Outcome `json:"outcomes"`
}

// Claimed returns how many outcomes actually claimed a reward this run.
func (r *RunReport) Claimed() int {
	n := 0
	for _, out := range r.Outcomes {
		if out.Status == games.StatusClaimed {
			n++
		}
	}
	return n
}

type CheckinService struct {
	store    Store
	adapters map[string]games.Adapter // keyed by protocol family
	decrypt  Decryptor
	reporter Reporter
	delay    time.Duration // pause between accounts, upstream rate courtesy

	mu sync.Mutex // at most one run at a time
}

func NewCheckinService(store Store, adapters []games.Adapter, decrypt Decryptor, reporter Reporter, delay time.Duration) *CheckinService {
	byFamily := make(map[string]games.Adapter, len(adapters))
	for _, adapter := range adapters {
		byFamily[adapter.Family()] = adapter
	}
	return &CheckinService{
		store:    store,
		adapters: byFamily,
		decrypt:  decrypt,
		reporter: reporter,
		delay:    delay,
	}
}

// Run executes one full check-in pass: load the snapshot, walk every
// account sequentially, aggregate, publish. One account's failure never
// aborts the batch; external cancellation aborts the whole run with no
// partial report.
func (s *CheckinService) Run(ctx context.Context) (*RunReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	started := time.Now()
	runID := uuid.NewString()
	log.Printf("[CHECKIN] ▶️ Run %s starting", runID)

	registry, err := LoadRegistry(ctx, s.store)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading account snapshot: %w", err)
	}

	outcomes := make([]games.Outcome, 0, len(accounts))
	for i, acct := range accounts {
		if i > 0 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := s.processAccount(ctx, acct, registry)
		log.Printf("[CHECKIN] %s/%s → %s", acct.GameName, acct.Label, out.Status)
		outcomes = append(outcomes, out)
	}

	report := &RunReport{
		RunID:     runID,
		StartedAt: started,
		Duration:  time.Since(started),
		Outcomes:  outcomes,
	}

	if err := s.reporter.Publish(ctx, report); err != nil {
		log.Printf("[CHECKIN] ⚠️ Run %s: publishing report failed: %v", runID, err)
	}
	if err := s.store.SaveRun(ctx, report); err != nil {
		log.Printf("[CHECKIN] ⚠️ Run %s: persisting history failed: %v", runID, err)
	}

	log.Printf("[CHECKIN] ✅ Run %s finished: %d account(s), %d claimed, took %s",
		runID, len(report.Outcomes), report.Claimed(), report.Duration.Round(time.Millisecond))
	return report, nil
}

// processAccount produces exactly one Outcome for one account. Adapter
// faults are already values; anything that still panics is downgraded here
// so the batch continues.
func (s *CheckinService) processAccount(ctx context.Context, acct models.Account, registry map[string]models.Game) (out games.Outcome) {
	cfg, hasCfg := registry[acct.GameName]
	if !hasCfg {
		cfg = models.Game{Name: acct.GameName, DisplayName: acct.GameName}
	}

	out = games.Outcome{
		AccountID:   acct.ID,
		Label:       acct.Label,
		GameName:    cfg.Name,
		GameDisplay: cfg.DisplayName,
		Status:      games.StatusPermanentError,
		Icon:        cfg.IconURL,
	}

	defer func() {
		if r := recover(); r != nil {
			out.Status = games.StatusPermanentError
			out.Message = fmt.Sprintf("Processing %s/%s failed unexpectedly.", cfg.DisplayName, acct.Label)
			out.ErrorDetail = fmt.Sprintf("panic: %v", r)
			log.Printf("[CHECKIN] ❌ %s/%s panicked: %v", acct.GameName, acct.Label, r)
		}
	}()

	if !hasCfg {
		out.Message = fmt.Sprintf("No game configuration found for %q.", acct.GameName)
		return out
	}

	adapter, ok := s.adapters[cfg.ProtocolFamily]
	if !ok {
		out.Message = fmt.Sprintf("No adapter registered for protocol family %q.", cfg.ProtocolFamily)
		return out
	}

	plaintext, err := s.decrypt(acct.Credential)
	if err != nil {
		out.Message = fmt.Sprintf("Stored credential for %s/%s could not be decrypted; please re-add the account.", cfg.DisplayName, acct.Label)
		out.ErrorDetail = err.Error()
		return out
	}

	return adapter.Process(ctx, games.Snapshot{
		AccountID:  acct.ID,
		OwnerID:    acct.OwnerID,
		Label:      acct.Label,
		GameName:   acct.GameName,
		Credential: plaintext,
	}, cfg)
}

// TriggerRun handles POST /s/checkin/run; the manual trigger. It runs the
// batch synchronously and returns the full report.
func (s *CheckinService) TriggerRun(c *fiber.Ctx) error {
	report, err := s.Run(c.Context())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// GetHistory handles GET /s/checkin/history?game=&limit=.
func (s *CheckinService) GetHistory(c *fiber.Ctx) error {
	logs, err := s.store.RunHistory(c.Context(), c.Query("game"), c.QueryInt("limit"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load check-in history"})
	}
	return c.JSON(fiber.Map{"history": logs})
}
