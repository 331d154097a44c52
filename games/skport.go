// games/skport.go
package games

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"daily-checkin-system/models"
)

const (
	skportUserAgent = "Skland/1.0.1 (com.hypergryph.skland; build:100001014; Android 31;) Okhttp/4.11.0"
	skportPlatform  = "3"
	skportVName     = "1.0.0"
)

// SkportAdapter handles the oauth-token family (Arknights: Endfield on the
// SKPort API). The stored credential is the long-lived account token; every
// run exchanges it for a short-lived cred/salt pair via the three-step
// OAuth flow, strictly in order. A failed step is never retried within the
// same run.
type SkportAdapter struct {
	Client *http.Client
}

func NewSkportAdapter(client *http.Client) *SkportAdapter {
	return &SkportAdapter{Client: client}
}

func (a *SkportAdapter) Family() string { return models.ProtocolOAuthToken }

// skportSession is the short-lived credential set minted by the OAuth flow.
type skportSession struct {
	Cred   string
	Salt   string
	UserID string
}

type skportOAuthEnvelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

type skportAPIEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type attendanceStatus struct {
	HasToday bool `json:"hasToday"`
	Calendar []struct {
		Done    bool   `json:"done"`
		AwardID string `json:"awardId"`
	} `json:"calendar"`
	ResourceInfoMap map[string]struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Icon  string `json:"icon"`
	} `json:"resourceInfoMap"`
}

type attendanceClaim struct {
	AwardIDs []struct {
		ID string `json:"id"`
	} `json:"awardIds"`
	ResourceInfoMap map[string]struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Icon  string `json:"icon"`
	} `json:"resourceInfoMap"`
}

func (a *SkportAdapter) Process(ctx context.Context, acct Snapshot, cfg models.Game) Outcome {
	token := strings.TrimSpace(acct.Credential)
	if token == "" {
		return failure(acct, cfg, StatusPermanentError,
			"Stored SKPort token is empty; please re-add the account.",
			"credential is empty")
	}

	session, st, detail := a.exchange(ctx, token, cfg)
	if st != "" {
		return failure(acct, cfg, st, authFailureMessage(st, cfg), detail)
	}

	status, st, detail := a.fetchAttendance(ctx, session, cfg)
	if st != "" {
		return failure(acct, cfg, st, upstreamMessage(st, cfg), detail)
	}

	if status.HasToday {
		out := newOutcome(acct, cfg, StatusAlreadyClaimed, cfg.SignedMessage)
		out.TotalSignDay = doneDays(status)
		out.Reward = lastClaimedReward(status)
		return out
	}

	claim, st, detail := a.claimAttendance(ctx, session, cfg)
	if st != "" {
		return failure(acct, cfg, st, upstreamMessage(st, cfg), detail)
	}

	out := newOutcome(acct, cfg, StatusClaimed, cfg.SuccessMessage)
	out.TotalSignDay = doneDays(status) + 1
	out.Reward = claimedReward(claim)
	return out
}

// exchange performs the three-step OAuth flow: basic info probe, code
// grant, cred generation. Upstream auth rejections at any step short-circuit
// to auth_failed; transport faults stay retryable.
func (a *SkportAdapter) exchange(ctx context.Context, token string, cfg models.Game) (*skportSession, Status, string) {
	// Step 1: validate the account token
	basicURL := fmt.Sprintf("%s/user/info/v1/basic?token=%s", cfg.OAuthURL, url.QueryEscape(token))
	var basic skportOAuthEnvelope
	if st, detail := a.doJSON(ctx, http.MethodGet, basicURL, nil, nil, &basic); st != "" {
		return nil, st, "oauth step 1: " + detail
	}
	if basic.Status != 0 {
		return nil, StatusAuthFailed, fmt.Sprintf("oauth step 1 status %d: %s", basic.Status, basic.Msg)
	}

	// Step 2: grant an OAuth code
	grantBody, _ := json.Marshal(map[string]any{
		"token":   token,
		"appCode": cfg.AppCode,
		"type":    0,
	})
	var grant skportOAuthEnvelope
	if st, detail := a.doJSON(ctx, http.MethodPost, cfg.OAuthURL+"/user/oauth2/v2/grant", grantBody, nil, &grant); st != "" {
		return nil, st, "oauth step 2: " + detail
	}
	var grantData struct {
		Code string `json:"code"`
	}
	if grant.Status != 0 || json.Unmarshal(grant.Data, &grantData) != nil || grantData.Code == "" {
		return nil, StatusAuthFailed, fmt.Sprintf("oauth step 2 status %d: %s", grant.Status, grant.Msg)
	}

	// Step 3: trade the code for cred + signing salt
	credBody, _ := json.Marshal(map[string]any{"code": grantData.Code, "kind": 1})
	credHeaders := map[string]string{
		"platform": skportPlatform,
		"Referer":  "https://www.skport.com/",
		"Origin":   "https://www.skport.com",
	}
	var cred skportAPIEnvelope
	if st, detail := a.doJSON(ctx, http.MethodPost, cfg.CredURL, credBody, credHeaders, &cred); st != "" {
		return nil, st, "oauth step 3: " + detail
	}
	var credData struct {
		Cred   string `json:"cred"`
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	if cred.Code != 0 || json.Unmarshal(cred.Data, &credData) != nil || credData.Cred == "" {
		return nil, StatusAuthFailed, fmt.Sprintf("oauth step 3 code %d: %s", cred.Code, cred.Message)
	}

	return &skportSession{Cred: credData.Cred, Salt: credData.Token, UserID: credData.UserID}, "", ""
}

func (a *SkportAdapter) fetchAttendance(ctx context.Context, session *skportSession, cfg models.Game) (*attendanceStatus, Status, string) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	headers := skportHeaders(session.Cred, timestamp)
	headers["sign"] = SignV1(session.Cred, timestamp)

	var env skportAPIEnvelope
	if st, detail := a.doJSON(ctx, http.MethodGet, cfg.InfoURL, nil, headers, &env); st != "" {
		return nil, st, detail
	}
	if env.Code != 0 {
		return nil, StatusPermanentError, fmt.Sprintf("attendance status code %d: %s", env.Code, env.Message)
	}
	var status attendanceStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		return nil, StatusPermanentError, fmt.Sprintf("decoding attendance status: %v", err)
	}
	return &status, "", ""
}

func (a *SkportAdapter) claimAttendance(ctx context.Context, session *skportSession, cfg models.Game) (*attendanceClaim, Status, string) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	headers := skportHeaders(session.Cred, timestamp)
	headers["sign"] = SignV2(session.Salt, signPath(cfg.SignURL), timestamp)

	var env skportAPIEnvelope
	if st, detail := a.doJSON(ctx, http.MethodPost, cfg.SignURL, nil, headers, &env); st != "" {
		return nil, st, detail
	}
	if env.Code != 0 {
		return nil, StatusPermanentError, fmt.Sprintf("attendance claim code %d: %s", env.Code, env.Message)
	}
	var claim attendanceClaim
	if err := json.Unmarshal(env.Data, &claim); err != nil {
		return nil, StatusPermanentError, fmt.Sprintf("decoding attendance claim: %v", err)
	}
	return &claim, "", ""
}

// doJSON performs one request and decodes the response body into out,
// classifying transport and HTTP-level failures.
func (a *SkportAdapter) doJSON(ctx context.Context, method, reqURL string, body []byte, headers map[string]string, out any) (Status, string) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return StatusPermanentError, fmt.Sprintf("building request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return StatusTransientError, fmt.Sprintf("%s %s: %v", method, reqURL, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return StatusAuthFailed, fmt.Sprintf("%s %s: upstream returned %d", method, reqURL, resp.StatusCode)
	case resp.StatusCode >= 500:
		return StatusTransientError, fmt.Sprintf("%s %s: upstream returned %d", method, reqURL, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return StatusPermanentError, fmt.Sprintf("%s %s: upstream returned %d", method, reqURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return StatusPermanentError, fmt.Sprintf("%s %s: decoding response: %v", method, reqURL, err)
	}
	return "", ""
}

// SignV1 is the MD5 signature used on read endpoints:
// md5("timestamp=T&cred=C").
func SignV1(cred, timestamp string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("timestamp=%s&cred=%s", timestamp, cred))))
}

// SignV2 is the signature used on the claim endpoint: HMAC-SHA256 of
// path + timestamp + canonical header JSON keyed by the session salt, then
// MD5 of the hex digest. The header JSON layout is a fixed upstream
// constant.
func SignV2(salt, path, timestamp string) string {
	headerJSON := fmt.Sprintf(`{"platform":"%s","timestamp":"%s","dId":"","vName":"%s"}`,
		skportPlatform, timestamp, skportVName)
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(path + timestamp + headerJSON))
	hexDigest := fmt.Sprintf("%x", mac.Sum(nil))
	return fmt.Sprintf("%x", md5.Sum([]byte(hexDigest)))
}

func skportHeaders(cred, timestamp string) map[string]string {
	return map[string]string{
		"User-Agent": skportUserAgent,
		"Connection": "close",
		"platform":   skportPlatform,
		"timestamp":  timestamp,
		"dId":        "",
		"vName":      skportVName,
		"cred":       cred,
	}
}

// signPath extracts the URL path the v2 signature covers.
func signPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

func doneDays(status *attendanceStatus) int {
	days := 0
	for _, day := range status.Calendar {
		if day.Done {
			days++
		}
	}
	return days
}

// lastClaimedReward resolves the reward of the most recent completed day.
func lastClaimedReward(status *attendanceStatus) *Reward {
	var awardID string
	for _, day := range status.Calendar {
		if day.Done {
			awardID = day.AwardID
		}
	}
	if resource, ok := status.ResourceInfoMap[awardID]; ok {
		return &Reward{Name: resource.Name, Count: resource.Count, Icon: resource.Icon}
	}
	return nil
}

// claimedReward resolves the primary reward from a claim response.
func claimedReward(claim *attendanceClaim) *Reward {
	for _, award := range claim.AwardIDs {
		if resource, ok := claim.ResourceInfoMap[award.ID]; ok {
			return &Reward{Name: resource.Name, Count: resource.Count, Icon: resource.Icon}
		}
	}
	return nil
}

func authFailureMessage(st Status, cfg models.Game) string {
	if st == StatusAuthFailed {
		return fmt.Sprintf("%s rejected the stored token; please log in again and re-add the account.", cfg.DisplayName)
	}
	return upstreamMessage(st, cfg)
}
