package xtream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ExpiryLayout formats account expiration dates.
const ExpiryLayout = "2006-01-02 15:04:05"

// LoginFailed is reported when the account payload carries neither
// user_info nor server_info.
const LoginFailed = "Login failed"

// AuthResult is the raw account payload returned by an authenticate call.
// When user_info.exp_date holds an epoch, user_info.exp_date_formatted is
// added next to it.
type AuthResult struct {
	Payload   map[string]any
	ExpiresAt *time.Time
}

// MarshalJSON emits the upstream payload.
func (r AuthResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Payload)
}

// UserInfo returns the user_info object when present.
func (r AuthResult) UserInfo() (map[string]any, bool) {
	ui, ok := r.Payload["user_info"].(map[string]any)
	return ui, ok
}

// Expiration returns the account expiry and its formatted form.
func (r AuthResult) Expiration() (time.Time, string, bool) {
	if r.ExpiresAt == nil {
		return time.Time{}, "", false
	}
	return *r.ExpiresAt, FormatExpiry(*r.ExpiresAt), true
}

// FormatExpiry renders t in UTC using ExpiryLayout.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(ExpiryLayout)
}

func parseAuth(body []byte) (*AuthResult, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, badFormat("authenticate: expected JSON object")
	}
	if payload == nil {
		return nil, badFormat("authenticate: empty payload")
	}

	if msg, failed := errorMarker(payload["error"]); failed {
		return nil, &UpstreamError{Message: msg}
	}
	_, hasUser := payload["user_info"]
	_, hasServer := payload["server_info"]
	if !hasUser && !hasServer {
		return nil, &UpstreamError{Message: LoginFailed}
	}

	res := &AuthResult{Payload: payload}
	ui, ok := res.UserInfo()
	if !ok {
		return res, nil
	}
	if auth, present := ui["auth"]; present && !truthy(auth) {
		msg := "invalid credentials"
		if m, _ := ui["message"].(string); strings.TrimSpace(m) != "" {
			msg = strings.TrimSpace(m)
		}
		return nil, &UpstreamError{Message: msg}
	}
	if exp, ok := parseEpoch(ui["exp_date"]); ok {
		res.ExpiresAt = &exp
		ui["exp_date_formatted"] = FormatExpiry(exp)
	}
	return res, nil
}

// errorMarker reports whether v signals an application error.
func errorMarker(v any) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case string:
		e = strings.TrimSpace(e)
		return e, e != ""
	case bool:
		return "upstream reported an error", e
	default:
		return "upstream reported an error", truthy(v)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case string:
		s := strings.TrimSpace(x)
		return s != "" && s != "0" && !strings.EqualFold(s, "false")
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	default:
		return true
	}
}

func parseEpoch(v any) (time.Time, bool) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}
