// games/hoyolab.go
package games

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"daily-checkin-system/models"
)

const (
	hoyolabUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"

	// DefaultRecordCardURL is the HoYoLAB game record card endpoint used to
	// refresh cached profile details after a successful claim.
	DefaultRecordCardURL = "https://bbs-api-os.hoyolab.com/game_record/card/wapi/getGameRecordCard"
)

// HoYoLAB retcodes the adapter interprets. Everything else non-zero is an
// unexpected-but-non-transport response.
const (
	retcodeOK            = 0
	retcodeAlreadySigned = -5003
	retcodeNotLoggedIn   = -100
	retcodeInvalidAuth   = -10001
)

var hoyolabRegions = map[string]string{
	"os_cht":  "TW",
	"os_asia": "SEA",
	"os_euro": "EU",
	"os_usa":  "NA",
}

// HoyolabAdapter handles the cookie-signed family (Genshin Impact,
// Honkai: Star Rail, Zenless Zone Zero). Authentication is the stored
// browser-session cookie plus a computed DS header on the claim call.
type HoyolabAdapter struct {
	Client        *http.Client
	RecordCardURL string
}

func NewHoyolabAdapter(client *http.Client) *HoyolabAdapter {
	return &HoyolabAdapter{
		Client:        client,
		RecordCardURL: DefaultRecordCardURL,
	}
}

func (a *HoyolabAdapter) Family() string { return models.ProtocolCookieSigned }

// hoyolabEnvelope is the common HoYoLAB response wrapper.
type hoyolabEnvelope struct {
	Retcode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type signInfo struct {
	TotalSignDay int    `json:"total_sign_day"`
	Today        string `json:"today"`
	IsSign       bool   `json:"is_sign"`
}

type awardList struct {
	Awards []struct {
		Name string `json:"name"`
		Cnt  int    `json:"cnt"`
		Icon string `json:"icon"`
	} `json:"awards"`
}

type recordCardList struct {
	List []struct {
		GameID     int    `json:"game_id"`
		GameRoleID string `json:"game_role_id"`
		Nickname   string `json:"nickname"`
		Level      int    `json:"level"`
		Region     string `json:"region"`
	} `json:"list"`
}

// Process runs the cookie-family check-in sequence: status probe, award
// lookup, signed claim, then a best-effort profile refresh. Already-signed
// accounts never reach the claim endpoint.
func (a *HoyolabAdapter) Process(ctx context.Context, acct Snapshot, cfg models.Game) Outcome {
	cookie := strings.TrimSpace(acct.Credential)
	ltuid := cookieField(cookie, "ltuid_v2")
	if ltuid == "" || cookieField(cookie, "ltoken_v2") == "" {
		return failure(acct, cfg, StatusPermanentError,
			"Stored cookie is missing the ltuid_v2/ltoken_v2 fields; please re-add the account.",
			"credential lacks required cookie fields")
	}

	infoURL := fmt.Sprintf("%s?act_id=%s", cfg.InfoURL, cfg.ActID)
	env, status, detail := a.call(ctx, http.MethodGet, infoURL, nil, cookie, cfg, "")
	if status != "" {
		return failure(acct, cfg, status, upstreamMessage(status, cfg), detail)
	}
	if st, d := classifyRetcode(env); st != "" {
		return failure(acct, cfg, st, upstreamMessage(st, cfg), d)
	}

	var info signInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return failure(acct, cfg, StatusPermanentError, upstreamMessage(StatusPermanentError, cfg),
			fmt.Sprintf("decoding sign info: %v", err))
	}

	if info.IsSign {
		out := newOutcome(acct, cfg, StatusAlreadyClaimed, cfg.SignedMessage)
		out.TotalSignDay = info.TotalSignDay
		return out
	}

	// Award for today's slot; best effort, a claim without a known reward
	// is still a claim.
	reward := a.todayAward(ctx, cookie, cfg, info.TotalSignDay)

	body, _ := json.Marshal(map[string]string{"act_id": cfg.ActID})
	env, status, detail = a.call(ctx, http.MethodPost, cfg.SignURL, body, cookie, cfg, FreshDS(cfg.DSSalt, string(body), ""))
	if status != "" {
		return failure(acct, cfg, status, upstreamMessage(status, cfg), detail)
	}
	switch env.Retcode {
	case retcodeOK:
		// verified claim; fall through
	case retcodeAlreadySigned:
		out := newOutcome(acct, cfg, StatusAlreadyClaimed, cfg.SignedMessage)
		out.TotalSignDay = info.TotalSignDay
		return out
	case retcodeNotLoggedIn, retcodeInvalidAuth:
		return failure(acct, cfg, StatusAuthFailed, upstreamMessage(StatusAuthFailed, cfg),
			fmt.Sprintf("claim retcode %d: %s", env.Retcode, env.Message))
	default:
		return failure(acct, cfg, StatusPermanentError, upstreamMessage(StatusPermanentError, cfg),
			fmt.Sprintf("claim retcode %d: %s", env.Retcode, env.Message))
	}

	out := newOutcome(acct, cfg, StatusClaimed, cfg.SuccessMessage)
	out.TotalSignDay = info.TotalSignDay + 1
	out.Reward = reward
	out.Profile = a.fetchProfile(ctx, cookie, ltuid, cfg)
	return out
}

// call performs one upstream request and returns the decoded envelope, or a
// non-empty Status classifying the failure.
func (a *HoyolabAdapter) call(ctx context.Context, method, url string, body []byte, cookie string, cfg models.Game, ds string) (*hoyolabEnvelope, Status, string) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, StatusPermanentError, fmt.Sprintf("building request: %v", err)
	}
	req.Header.Set("User-Agent", hoyolabUserAgent)
	req.Header.Set("Cookie", cookie)
	req.Header.Set("x-rpc-signgame", cfg.SignGameHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ds != "" {
		req.Header.Set("DS", ds)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, StatusTransientError, fmt.Sprintf("%s %s: %v", method, url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return nil, StatusTransientError, fmt.Sprintf("%s %s: upstream returned %d", method, url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, StatusPermanentError, fmt.Sprintf("%s %s: upstream returned %d", method, url, resp.StatusCode)
	}

	var env hoyolabEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, StatusPermanentError, fmt.Sprintf("%s %s: decoding response: %v", method, url, err)
	}
	return &env, "", ""
}

func classifyRetcode(env *hoyolabEnvelope) (Status, string) {
	switch env.Retcode {
	case retcodeOK:
		return "", ""
	case retcodeNotLoggedIn, retcodeInvalidAuth:
		return StatusAuthFailed, fmt.Sprintf("retcode %d: %s", env.Retcode, env.Message)
	default:
		return StatusPermanentError, fmt.Sprintf("retcode %d: %s", env.Retcode, env.Message)
	}
}

func (a *HoyolabAdapter) todayAward(ctx context.Context, cookie string, cfg models.Game, totalSigned int) *Reward {
	homeURL := fmt.Sprintf("%s?act_id=%s", cfg.HomeURL, cfg.ActID)
	env, status, detail := a.call(ctx, http.MethodGet, homeURL, nil, cookie, cfg, "")
	if status != "" {
		log.Printf("[CHECKIN] ⚠️ %s: award lookup failed (%s: %s)", cfg.DisplayName, status, detail)
		return nil
	}
	if env.Retcode != retcodeOK {
		log.Printf("[CHECKIN] ⚠️ %s: award lookup retcode %d: %s", cfg.DisplayName, env.Retcode, env.Message)
		return nil
	}
	var awards awardList
	if err := json.Unmarshal(env.Data, &awards); err != nil || totalSigned >= len(awards.Awards) {
		return nil
	}
	today := awards.Awards[totalSigned]
	return &Reward{Name: today.Name, Count: today.Cnt, Icon: today.Icon}
}

// fetchProfile refreshes uid/nickname/rank/region from the game record
// card. Failures are logged and ignored; the claim already happened.
func (a *HoyolabAdapter) fetchProfile(ctx context.Context, cookie, ltuid string, cfg models.Game) *Profile {
	url := fmt.Sprintf("%s?uid=%s", a.RecordCardURL, ltuid)
	env, status, detail := a.call(ctx, http.MethodGet, url, nil, cookie, cfg, "")
	if status != "" {
		log.Printf("[CHECKIN] ⚠️ %s: record card lookup failed (%s: %s)", cfg.DisplayName, status, detail)
		return nil
	}
	if env.Retcode != retcodeOK {
		log.Printf("[CHECKIN] ⚠️ %s: record card retcode %d: %s", cfg.DisplayName, env.Retcode, env.Message)
		return nil
	}
	var cards recordCardList
	if err := json.Unmarshal(env.Data, &cards); err != nil {
		return nil
	}
	for _, card := range cards.List {
		if card.GameID == cfg.GameID {
			return &Profile{
				UID:      card.GameRoleID,
				Nickname: card.Nickname,
				Rank:     card.Level,
				Region:   fixRegion(card.Region),
			}
		}
	}
	return nil
}

func fixRegion(region string) string {
	if mapped, ok := hoyolabRegions[region]; ok {
		return mapped
	}
	return "Unknown"
}

func cookieField(cookie, name string) string {
	for _, part := range strings.Split(cookie, ";") {
		if k, v, ok := strings.Cut(strings.TrimSpace(part), "="); ok && k == name {
			return v
		}
	}
	return ""
}

func upstreamMessage(status Status, cfg models.Game) string {
	switch status {
	case StatusAuthFailed:
		return fmt.Sprintf("%s rejected the stored cookie; please re-add the account.", cfg.DisplayName)
	case StatusTransientError:
		return fmt.Sprintf("%s is unreachable right now; will retry on the next scheduled run.", cfg.DisplayName)
	default:
		return fmt.Sprintf("%s returned an unexpected response; check the account configuration.", cfg.DisplayName)
	}
}
