package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/xtreamrelay/internal/models"
)

func newUpstream(t *testing.T, h http.HandlerFunc) (*httptest.Server, models.Credentials) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	creds, err := models.NewCredentials(srv.URL+"/", "alice", "s3cret")
	require.NoError(t, err)
	return srv, creds
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestAuthenticate_ok(t *testing.T) {
	var gotQuery, gotUA, gotPath string
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		jsonReply(`{"user_info":{"username":"alice","auth":1,"exp_date":"1735689600"},"server_info":{"url":"x"}}`)(w, r)
	})

	res, err := New(creds).Authenticate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/player_api.php", gotPath)
	assert.Equal(t, "password=s3cret&username=alice", gotQuery)
	assert.Equal(t, DefaultUserAgent, gotUA)

	ui, ok := res.UserInfo()
	require.True(t, ok)
	assert.Equal(t, "1735689600", ui["exp_date"])
	assert.Equal(t, "2025-01-01 00:00:00", ui["exp_date_formatted"])

	exp, formatted, ok := res.Expiration()
	require.True(t, ok)
	assert.Equal(t, int64(1735689600), exp.Unix())
	assert.Equal(t, "2025-01-01 00:00:00", formatted)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"server_info":{"url":"x"}`)
}

func TestAuthenticate_numericExpiry(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"user_info":{"auth":1,"exp_date":1735689600}}`))

	res, err := New(creds).Authenticate(context.Background())
	require.NoError(t, err)
	_, formatted, ok := res.Expiration()
	require.True(t, ok)
	assert.Equal(t, "2025-01-01 00:00:00", formatted)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"exp_date":1735689600`)
}

func TestAuthenticate_noExpiry(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"user_info":{"auth":1,"exp_date":null}}`))

	res, err := New(creds).Authenticate(context.Background())
	require.NoError(t, err)
	_, _, ok := res.Expiration()
	assert.False(t, ok)
	ui, _ := res.UserInfo()
	assert.NotContains(t, ui, "exp_date_formatted")
}

func TestAuthenticate_errorMarker(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"error":"bad creds"}`))

	_, err := New(creds).Authenticate(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad creds", ue.Message)
}

func TestAuthenticate_authZero(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"user_info":{"auth":0}}`))

	_, err := New(creds).Authenticate(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "invalid credentials", ue.Message)
}

func TestAuthenticate_emptyAccount(t *testing.T) {
	for _, body := range []string{`{}`, `{"status":"ok"}`} {
		_, creds := newUpstream(t, jsonReply(body))
		_, err := New(creds).Authenticate(context.Background())
		var ue *UpstreamError
		require.ErrorAs(t, err, &ue, "body %q", body)
		assert.Equal(t, LoginFailed, ue.Message)
	}
}

func TestAuthenticate_notAnObject(t *testing.T) {
	for _, body := range []string{`[]`, `null`, `<html>`} {
		_, creds := newUpstream(t, jsonReply(body))
		_, err := New(creds).Authenticate(context.Background())
		assert.ErrorIs(t, err, ErrFormat, "body %q", body)
	}
}

func TestAuthenticate_httpStatus(t *testing.T) {
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := New(creds).Authenticate(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Message, "503")
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestAuthenticate_unreachable(t *testing.T) {
	srv, creds := newUpstream(t, jsonReply(`{}`))
	srv.Close()

	_, err := New(creds).Authenticate(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestGet_ignoresCallerCancellation(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"user_info":{"auth":1}}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(creds).Authenticate(ctx)
	require.NoError(t, err)
}

func TestGet_sharedClientTimeoutStillBounded(t *testing.T) {
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		jsonReply(`{}`)(w, r)
	})
	hc := &http.Client{Timeout: 10 * time.Millisecond}

	_, err := New(creds, WithHTTPClient(hc)).Authenticate(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
	assert.Contains(t, err.Error(), "no response within")
}

func TestListCategories(t *testing.T) {
	var action string
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		action = r.URL.Query().Get("action")
		jsonReply(`[{"category_id":"2","category_name":"News"},{"category_id":1,"category_name":"Movies","parent_id":0}]`)(w, r)
	})

	cats, err := New(creds).ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "get_live_categories", action)
	require.Len(t, cats, 2)
	assert.Equal(t, models.ID("2"), cats[0].CategoryID)
	assert.Equal(t, models.ID("1"), cats[1].CategoryID)
}

func TestListCategories_wrongShape(t *testing.T) {
	for _, body := range []string{`{"user_info":{"auth":0}}`, `null`, ``} {
		_, creds := newUpstream(t, jsonReply(body))
		_, err := New(creds).ListCategories(context.Background())
		assert.ErrorIs(t, err, ErrFormat, "body %q", body)
	}
}

func TestListStreams_categoryParam(t *testing.T) {
	tests := []struct {
		categoryID string
		want       string
		present    bool
	}{
		{"", "", false},
		{"0", "", false},
		{"12", "12", true},
	}
	for _, tc := range tests {
		t.Run("category="+tc.categoryID, func(t *testing.T) {
			var got string
			var present bool
			_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "get_live_streams", r.URL.Query().Get("action"))
				got = r.URL.Query().Get("category_id")
				present = r.URL.Query().Has("category_id")
				jsonReply(`[]`)(w, r)
			})
			_, err := New(creds).ListStreams(context.Background(), tc.categoryID, "")
			require.NoError(t, err)
			assert.Equal(t, tc.present, present)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListStreams_filterThenDerive(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`[
		{"stream_id":1,"name":"BBC","stream_icon":"http://i/bbc.png","direct_source":"http://evil/1"},
		{"stream_id":2,"name":"CNN"},
		{"name":"bbc radio"}
	]`))

	channels, err := New(creds).ListStreams(context.Background(), "", "bb")
	require.NoError(t, err)
	require.Len(t, channels, 2)

	bbc := channels[0]
	assert.Equal(t, "BBC", bbc.Name)
	assert.Equal(t, creds.Server+"/live/alice/s3cret/1", bbc.DirectSource)
	assert.Equal(t, bbc.DirectSource, bbc.StreamURL)
	assert.Equal(t, bbc.DirectSource+".m3u8", bbc.M3U8URL)

	radio := channels[1]
	assert.Equal(t, "bbc radio", radio.Name)
	assert.Empty(t, radio.DirectSource)
	assert.Empty(t, radio.M3U8URL)
}

func TestListStreams_oddRecordsKeepTheList(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`[
		{"stream_id":1,"name":"BBC","tv_archive":1,"category_ids":[5]},
		{"stream_id":2,"name":12345}
	]`))

	channels, err := New(creds).ListStreams(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "12345", channels[1].Name)
	assert.Equal(t, creds.Server+"/live/alice/s3cret/2.m3u8", channels[1].M3U8URL)

	out, err := json.Marshal(channels[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"tv_archive":1`)
	assert.Contains(t, string(out), `"category_ids":[5]`)
}

func TestExportPlaylist_oddRecordStillExported(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`[{"stream_id":1,"name":"BBC"},{"stream_id":2,"name":12345}]`))

	doc, ok, err := New(creds).ExportPlaylist(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, doc, `tvg-name="BBC"`)
	assert.Contains(t, doc, `tvg-name="12345"`)
}

func TestListStreams_wrongShape(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"error":"nope"}`))
	_, err := New(creds).ListStreams(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestGetStreamGuide_passThrough(t *testing.T) {
	const body = `{"epg_listings":[{"title":"TmV3cw==","start":"2025-01-01 10:00:00"}]}`
	var q map[string]string
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		q = map[string]string{
			"action":    r.URL.Query().Get("action"),
			"stream_id": r.URL.Query().Get("stream_id"),
		}
		jsonReply(body)(w, r)
	})

	guide, err := New(creds).GetStreamGuide(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"action": "get_short_epg", "stream_id": "42"}, q)
	assert.JSONEq(t, body, string(guide))
}

func TestGetStreamGuide_invalidJSON(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`not json`))
	_, err := New(creds).GetStreamGuide(context.Background(), "1")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestExportPlaylist_empty(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`[]`))

	doc, ok, err := New(creds).ExportPlaylist(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "#EXTM3U\n", doc)
}

func TestExportPlaylist_document(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`[
		{"stream_id":"7","name":"Sky \"One\"","stream_icon":"http://i/7.png"},
		{"name":"no id"}
	]`))

	doc, ok, err := New(creds).ExportPlaylist(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	want := "#EXTM3U\n" +
		`#EXTINF:-1 tvg-id="7" tvg-name="Sky 'One'" tvg-logo="http://i/7.png",Sky "One"` + "\n" +
		creds.Server + "/live/alice/s3cret/7.m3u8\n"
	assert.Equal(t, want, doc)
}

func TestExportPlaylist_notAList(t *testing.T) {
	_, creds := newUpstream(t, jsonReply(`{"user_info":{"auth":0}}`))

	doc, ok, err := New(creds).ExportPlaylist(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, doc)
}

func TestExportPlaylist_unreachable(t *testing.T) {
	srv, creds := newUpstream(t, jsonReply(`[]`))
	srv.Close()

	_, ok, err := New(creds).ExportPlaylist(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnreachable))
}

func TestClient_singleAttempt(t *testing.T) {
	var calls atomic.Int32
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := New(creds).ListCategories(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithUserAgent(t *testing.T) {
	var ua string
	_, creds := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		jsonReply(`[]`)(w, r)
	})
	_, err := New(creds, WithUserAgent("Relay/1.0")).ListCategories(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ua, "Relay/"))
}
