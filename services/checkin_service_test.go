package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"daily-checkin-system/games"
	"daily-checkin-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	games    []models.Game
	accounts []models.Account
	saved    *RunReport
	history  []models.CheckinLog
}

func (f *fakeStore) ActiveGames(context.Context) ([]models.Game, error) { return f.games, nil }
func (f *fakeStore) ActiveAccounts(context.Context) ([]models.Account, error) {
	return f.accounts, nil
}
func (f *fakeStore) SaveRun(_ context.Context, report *RunReport) error {
	f.saved = report
	return nil
}
func (f *fakeStore) RunHistory(context.Context, string, int) ([]models.CheckinLog, error) {
	return f.history, nil
}

type fakeReporter struct {
	published *RunReport
	calls     int
}

func (f *fakeReporter) Publish(_ context.Context, report *RunReport) error {
	f.published = report
	f.calls++
	return nil
}

// funcAdapter lets each test script per-account behavior.
type funcAdapter struct {
	family  string
	process func(acct games.Snapshot, cfg models.Game) games.Outcome
}

func (f *funcAdapter) Family() string { return f.family }
func (f *funcAdapter) Process(_ context.Context, acct games.Snapshot, cfg models.Game) games.Outcome {
	return f.process(acct, cfg)
}

func passthroughDecrypt(ciphertext string) (string, error) { return ciphertext, nil }

func testGame(name, family string) models.Game {
	return models.Game{
		ID: "game-" + name, Name: name, DisplayName: name,
		ProtocolFamily: family, IsActive: true,
		SuccessMessage: "checked in", SignedMessage: "already",
	}
}

func testAccount(id, game string) models.Account {
	return models.Account{
		ID: id, OwnerID: "owner-1", GameName: game, Label: "label-" + id,
		Credential: "cred-" + id, IsActive: true,
	}
}

func claimingAdapter(family string) *funcAdapter {
	return &funcAdapter{family: family, process: func(acct games.Snapshot, cfg models.Game) games.Outcome {
		return games.Outcome{
			AccountID: acct.AccountID, Label: acct.Label,
			GameName: cfg.Name, GameDisplay: cfg.DisplayName,
			Status: games.StatusClaimed, Message: cfg.SuccessMessage,
		}
	}}
}

func TestRunProducesOneOutcomePerAccount(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "genshin"), testAccount("a2", "genshin"), testAccount("a3", "genshin")},
	}
	reporter := &fakeReporter{}
	svc := NewCheckinService(store, []games.Adapter{claimingAdapter("fake")}, passthroughDecrypt, reporter, 0)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	// insertion order preserved
	assert.Equal(t, "a1", report.Outcomes[0].AccountID)
	assert.Equal(t, "a2", report.Outcomes[1].AccountID)
	assert.Equal(t, "a3", report.Outcomes[2].AccountID)
	assert.Equal(t, 3, report.Claimed())

	assert.Equal(t, 1, reporter.calls, "report is published exactly once")
	assert.Same(t, report, reporter.published)
	assert.Same(t, report, store.saved)
}

func TestRunIsolatesPanickingAccount(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "genshin"), testAccount("a2", "genshin"), testAccount("a3", "genshin")},
	}
	adapter := &funcAdapter{family: "fake", process: func(acct games.Snapshot, cfg models.Game) games.Outcome {
		if acct.AccountID == "a2" {
			panic("adapter blew up")
		}
		return games.Outcome{AccountID: acct.AccountID, GameName: cfg.Name, Status: games.StatusClaimed, Message: cfg.SuccessMessage}
	}}
	svc := NewCheckinService(store, []games.Adapter{adapter}, passthroughDecrypt, &fakeReporter{}, 0)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3, "a failing account must not abort the batch")
	assert.Equal(t, games.StatusClaimed, report.Outcomes[0].Status)
	assert.Equal(t, games.StatusPermanentError, report.Outcomes[1].Status)
	assert.Contains(t, report.Outcomes[1].ErrorDetail, "adapter blew up")
	assert.Equal(t, games.StatusClaimed, report.Outcomes[2].Status)
}

func TestRunUnknownGame(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "retired-game")},
	}
	svc := NewCheckinService(store, []games.Adapter{claimingAdapter("fake")}, passthroughDecrypt, &fakeReporter{}, 0)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, games.StatusPermanentError, report.Outcomes[0].Status)
	assert.Contains(t, report.Outcomes[0].Message, "retired-game")
}

func TestRunMissingAdapter(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "unhandled-family")},
		accounts: []models.Account{testAccount("a1", "genshin")},
	}
	svc := NewCheckinService(store, []games.Adapter{claimingAdapter("fake")}, passthroughDecrypt, &fakeReporter{}, 0)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, games.StatusPermanentError, report.Outcomes[0].Status)
}

func TestRunDecryptFailure(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "genshin")},
	}
	adapterCalled := false
	adapter := &funcAdapter{family: "fake", process: func(acct games.Snapshot, cfg models.Game) games.Outcome {
		adapterCalled = true
		return games.Outcome{AccountID: acct.AccountID, Status: games.StatusClaimed}
	}}
	failingDecrypt := func(string) (string, error) { return "", errors.New("bad ciphertext") }
	svc := NewCheckinService(store, []games.Adapter{adapter}, failingDecrypt, &fakeReporter{}, 0)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, games.StatusPermanentError, report.Outcomes[0].Status)
	assert.Equal(t, "bad ciphertext", report.Outcomes[0].ErrorDetail)
	assert.False(t, adapterCalled, "undecryptable credential must not reach the adapter")
}

func TestRunRejectsOverlap(t *testing.T) {
	store := &fakeStore{}
	svc := NewCheckinService(store, nil, passthroughDecrypt, &fakeReporter{}, 0)

	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunCancellationDiscardsReport(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "genshin"), testAccount("a2", "genshin")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	reporter := &fakeReporter{}
	adapter := &funcAdapter{family: "fake", process: func(acct games.Snapshot, cfg models.Game) games.Outcome {
		cancel() // external abort mid-run
		return games.Outcome{AccountID: acct.AccountID, Status: games.StatusClaimed}
	}}
	svc := NewCheckinService(store, []games.Adapter{adapter}, passthroughDecrypt, reporter, time.Millisecond)

	report, err := svc.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report, "aborted runs must not emit a partial report")
	assert.Equal(t, 0, reporter.calls)
	assert.Nil(t, store.saved)
}

func TestTriggerRunEndpoint(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "genshin")},
	}
	svc := NewCheckinService(store, []games.Adapter{claimingAdapter("fake")}, passthroughDecrypt, &fakeReporter{}, 0)

	app := fiber.New()
	app.Post("/s/checkin/run", svc.TriggerRun)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/s/checkin/run", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var report RunReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Len(t, report.Outcomes, 1)
	assert.NotEmpty(t, report.RunID)
}

func TestHistoryEndpoint(t *testing.T) {
	store := &fakeStore{history: []models.CheckinLog{
		{ID: "log-1", RunID: "run-1", AccountID: "a1", GameName: "genshin", Status: "claimed"},
	}}
	svc := NewCheckinService(store, nil, passthroughDecrypt, &fakeReporter{}, 0)

	app := fiber.New()
	app.Get("/s/checkin/history", svc.GetHistory)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/s/checkin/history?game=genshin", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "run-1")
}

func TestDelayBetweenAccounts(t *testing.T) {
	store := &fakeStore{
		games:    []models.Game{testGame("genshin", "fake")},
		accounts: []models.Account{testAccount("a1", "genshin"), testAccount("a2", "genshin"), testAccount("a3", "genshin")},
	}
	svc := NewCheckinService(store, []games.Adapter{claimingAdapter("fake")}, passthroughDecrypt, &fakeReporter{}, 30*time.Millisecond)

	started := time.Now()
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	// two gaps of 30ms between three accounts
	assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)
}

var _ Store = (*fakeStore)(nil)
var _ Reporter = (*fakeReporter)(nil)
var _ games.Adapter = (*funcAdapter)(nil)
