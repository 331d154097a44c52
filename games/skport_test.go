package games

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"daily-checkin-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skportFake simulates the SKPort OAuth exchange and attendance API.
type skportFake struct {
	mu          sync.Mutex
	validToken  string
	hasToday    bool
	doneDays    int
	rejectBasic int // HTTP status to reject step 1 with, 0 = accept

	basicCalls  int
	statusCalls int
	claimCalls  int
	lastCred    string
	lastSign    string
}

func (f *skportFake) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/user/info/v1/basic", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.basicCalls++
		if f.rejectBasic != 0 {
			w.WriteHeader(f.rejectBasic)
			return
		}
		if r.URL.Query().Get("token") != f.validToken {
			writeJSON(w, map[string]any{"status": 10002, "msg": "token invalid"})
			return
		}
		writeJSON(w, map[string]any{"status": 0, "msg": "OK"})
	})

	mux.HandleFunc("/user/oauth2/v2/grant", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": 0, "msg": "OK", "data": map[string]any{"code": "oauth-code-1"}})
	})

	mux.HandleFunc("/user/auth/generate_cred_by_code", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 0, "message": "OK", "data": map[string]any{
			"cred": "cred-1", "token": "salt-1", "userId": "user-1",
		}})
	})

	mux.HandleFunc("/game/endfield/attendance", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastCred = r.Header.Get("cred")
		f.lastSign = r.Header.Get("sign")

		if r.Method == http.MethodPost {
			f.claimCalls++
			f.hasToday = true
			f.doneDays++
			writeJSON(w, map[string]any{"code": 0, "message": "OK", "data": map[string]any{
				"awardIds": []map[string]any{{"id": "award-7"}},
				"resourceInfoMap": map[string]any{
					"award-7": map[string]any{"name": "Originium Shard", "count": 3},
				},
			}})
			return
		}

		f.statusCalls++
		calendar := make([]map[string]any, 0, f.doneDays+1)
		for i := 0; i < f.doneDays; i++ {
			calendar = append(calendar, map[string]any{"done": true, "awardId": "award-old"})
		}
		calendar = append(calendar, map[string]any{"done": false, "awardId": "award-7"})
		writeJSON(w, map[string]any{"code": 0, "message": "OK", "data": map[string]any{
			"hasToday": f.hasToday,
			"calendar": calendar,
			"resourceInfoMap": map[string]any{
				"award-old": map[string]any{"name": "Originium Shard", "count": 3},
			},
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func skportConfig(baseURL string) models.Game {
	return models.Game{
		Name:           "endfield",
		DisplayName:    "Arknights: Endfield",
		ProtocolFamily: models.ProtocolOAuthToken,
		InfoURL:        baseURL + "/game/endfield/attendance",
		SignURL:        baseURL + "/game/endfield/attendance",
		CredURL:        baseURL + "/user/auth/generate_cred_by_code",
		OAuthURL:       baseURL,
		AppCode:        "6eb76d4e13aa36e6",
		SuccessMessage: "Attendance claimed!",
		SignedMessage:  "Attendance already claimed today.",
	}
}

func skportSnapshot(token string) Snapshot {
	return Snapshot{AccountID: "acct-2", OwnerID: "owner-1", Label: "main", GameName: "endfield", Credential: token}
}

func TestSkportSignV1ReferenceVector(t *testing.T) {
	assert.Equal(t, "ae4aa70a789f9896a5e7e9bd73e6ca5c", SignV1("test-cred-value", "1700000000"))
}

func TestSkportSignV2ReferenceVector(t *testing.T) {
	sign := SignV2("test-salt", "/web/v1/game/endfield/attendance", "1700000000")
	assert.Equal(t, "46c147cc69011c20a14a5f89be7ba4bb", sign)
	// deterministic across invocations
	assert.Equal(t, sign, SignV2("test-salt", "/web/v1/game/endfield/attendance", "1700000000"))
}

func TestSkportEmptyToken(t *testing.T) {
	fake := &skportFake{}
	server := fake.server(t)
	adapter := NewSkportAdapter(server.Client())

	out := adapter.Process(context.Background(), skportSnapshot("   "), skportConfig(server.URL))

	assert.Equal(t, StatusPermanentError, out.Status)
	assert.Equal(t, 0, fake.basicCalls, "empty credential must not reach upstream")
}

func TestSkportExpiredToken(t *testing.T) {
	fake := &skportFake{validToken: "good", rejectBasic: http.StatusUnauthorized}
	server := fake.server(t)
	adapter := NewSkportAdapter(server.Client())

	out := adapter.Process(context.Background(), skportSnapshot("stale"), skportConfig(server.URL))

	assert.Equal(t, StatusAuthFailed, out.Status)
	assert.Equal(t, 0, fake.statusCalls, "failed exchange must not probe attendance")
	assert.Equal(t, 0, fake.claimCalls)
}

func TestSkportRejectedToken(t *testing.T) {
	fake := &skportFake{validToken: "good"}
	server := fake.server(t)
	adapter := NewSkportAdapter(server.Client())

	out := adapter.Process(context.Background(), skportSnapshot("wrong"), skportConfig(server.URL))

	assert.Equal(t, StatusAuthFailed, out.Status)
	assert.Contains(t, out.ErrorDetail, "oauth step 1")
	assert.Equal(t, 0, fake.statusCalls)
}

func TestSkportClaimSuccess(t *testing.T) {
	fake := &skportFake{validToken: "good", doneDays: 3}
	server := fake.server(t)
	adapter := NewSkportAdapter(server.Client())
	cfg := skportConfig(server.URL)

	out := adapter.Process(context.Background(), skportSnapshot("good"), cfg)

	assert.Equal(t, StatusClaimed, out.Status)
	assert.Equal(t, cfg.SuccessMessage, out.Message)
	require.NotNil(t, out.Reward)
	assert.Equal(t, "Originium Shard", out.Reward.Name)
	assert.Equal(t, 3, out.Reward.Count)
	assert.Equal(t, 4, out.TotalSignDay)

	assert.Equal(t, "cred-1", fake.lastCred)
	assert.Len(t, fake.lastSign, 32, "claim must carry the v2 signature")
}

func TestSkportAlreadyClaimedSkipsClaim(t *testing.T) {
	fake := &skportFake{validToken: "good", hasToday: true, doneDays: 4}
	server := fake.server(t)
	adapter := NewSkportAdapter(server.Client())
	cfg := skportConfig(server.URL)

	out := adapter.Process(context.Background(), skportSnapshot("good"), cfg)

	assert.Equal(t, StatusAlreadyClaimed, out.Status)
	assert.Equal(t, cfg.SignedMessage, out.Message)
	assert.Equal(t, 4, out.TotalSignDay)
	assert.Equal(t, 0, fake.claimCalls, "already-claimed accounts must not POST the claim")
}

func TestSkportClaimIdempotent(t *testing.T) {
	fake := &skportFake{validToken: "good", doneDays: 2}
	server := fake.server(t)
	adapter := NewSkportAdapter(server.Client())
	cfg := skportConfig(server.URL)

	first := adapter.Process(context.Background(), skportSnapshot("good"), cfg)
	second := adapter.Process(context.Background(), skportSnapshot("good"), cfg)

	assert.Equal(t, StatusClaimed, first.Status)
	assert.Equal(t, StatusAlreadyClaimed, second.Status)
	assert.Equal(t, 1, fake.claimCalls)
}
