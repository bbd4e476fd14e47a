package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/voyagen/xtreamrelay/internal/log"
	"github.com/voyagen/xtreamrelay/internal/metrics"
	"github.com/voyagen/xtreamrelay/internal/models"
	"github.com/voyagen/xtreamrelay/internal/store"
	"github.com/voyagen/xtreamrelay/internal/xtream"
)

// Upstream is the provider API as seen by the relay. *xtream.Client implements it.
type Upstream interface {
	Authenticate(ctx context.Context) (*xtream.AuthResult, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListStreams(ctx context.Context, categoryID, search string) ([]models.Channel, error)
	GetStreamGuide(ctx context.Context, streamID string) (json.RawMessage, error)
	ExportPlaylist(ctx context.Context) (string, bool, error)
}

// Dialer builds an Upstream for one operation.
type Dialer func(models.Credentials) Upstream

// XtreamDialer returns a Dialer producing xtream clients with opts applied.
func XtreamDialer(opts ...xtream.Option) Dialer {
	return func(c models.Credentials) Upstream {
		return xtream.New(c, opts...)
	}
}

// AccountInfo is the account expiry extracted from an authenticate call.
type AccountInfo struct {
	ExpDate    int64     `json:"exp_date"`
	ExpiresAt  time.Time `json:"expires_at"`
	Expiration string    `json:"expiration"`
}

// Relay maps session identifiers to upstream credentials and relays catalog
// operations on their behalf.
type Relay struct {
	store  store.Store
	dial   Dialer
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithSessionTTL treats sessions older than ttl as absent. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(r *Relay) { r.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// New returns a Relay backed by s. A nil dial uses XtreamDialer().
func New(s store.Store, dial Dialer, opts ...Option) *Relay {
	if dial == nil {
		dial = XtreamDialer()
	}
	r := &Relay{
		store:  s,
		dial:   dial,
		now:    time.Now,
		logger: xlog.WithComponent("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect authenticates against the upstream and, on success, binds the
// credentials to id. On failure the stored state for id is left untouched.
func (r *Relay) Connect(ctx context.Context, id, server, username, password string) (*xtream.AuthResult, error) {
	if strings.TrimSpace(id) == "" {
		metrics.RecordConnect("validation")
		return nil, fmt.Errorf("%w: missing session identifier", ErrValidation)
	}
	creds, err := models.NewCredentials(server, username, password)
	if err != nil {
		metrics.RecordConnect("validation")
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	logger := r.logger.With().Str("username", creds.Username).Str("server", creds.Server).Logger()
	logger.Info().Msg("connection attempt")

	auth, err := r.dial(creds).Authenticate(ctx)
	if err != nil {
		kind := Classify(err)
		metrics.RecordConnect(kind.String())
		logger.Warn().Err(err).Str("kind", kind.String()).Msg("failed login")
		return nil, err
	}

	sess := models.Session{ID: id, Credentials: creds, AuthenticatedAt: r.now()}
	if err := r.store.Put(ctx, sess); err != nil {
		metrics.RecordConnect(KindStore.String())
		logger.Error().Err(err).Msg("store session")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	metrics.RecordConnect("success")
	logger.Info().Msg("successful login")
	return auth, nil
}

// RequireAuthenticated returns the credentials bound to id. Missing or expired
// sessions yield ErrNotAuthorized; the upstream is never contacted.
func (r *Relay) RequireAuthenticated(ctx context.Context, id string) (models.Credentials, error) {
	if id == "" {
		return models.Credentials{}, ErrNotAuthorized
	}
	sess, err := r.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Credentials{}, ErrNotAuthorized
	}
	if err != nil {
		r.logger.Error().Err(err).Msg("load session")
		return models.Credentials{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if sess.Expired(r.now(), r.ttl) {
		if err := r.store.Delete(ctx, id); err != nil {
			r.logger.Warn().Err(err).Msg("delete expired session")
		}
		return models.Credentials{}, ErrNotAuthorized
	}
	return sess.Credentials, nil
}

func (r *Relay) upstream(ctx context.Context, id string) (Upstream, error) {
	creds, err := r.RequireAuthenticated(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.dial(creds), nil
}

// Categories lists live categories in upstream order.
func (r *Relay) Categories(ctx context.Context, id string) ([]models.Category, error) {
	up, err := r.upstream(ctx, id)
	if err != nil {
		return nil, err
	}
	return up.ListCategories(ctx)
}

// Streams lists live channels, optionally by category and name search.
func (r *Relay) Streams(ctx context.Context, id, categoryID, search string) ([]models.Channel, error) {
	up, err := r.upstream(ctx, id)
	if err != nil {
		return nil, err
	}
	return up.ListStreams(ctx, categoryID, search)
}

// StreamGuide returns the short EPG payload for streamID.
func (r *Relay) StreamGuide(ctx context.Context, id, streamID string) (json.RawMessage, error) {
	up, err := r.upstream(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(streamID) == "" {
		return nil, fmt.Errorf("%w: stream id is required", ErrValidation)
	}
	return up.GetStreamGuide(ctx, strings.TrimSpace(streamID))
}

// ExportPlaylist renders the channel list as extended M3U, skipping channels
// without a stream id. ok is false when the upstream had nothing usable to export.
func (r *Relay) ExportPlaylist(ctx context.Context, id string) (string, bool, error) {
	up, err := r.upstream(ctx, id)
	if err != nil {
		return "", false, err
	}
	return up.ExportPlaylist(ctx)
}

// AccountInfo re-authenticates and extracts the account expiry.
func (r *Relay) AccountInfo(ctx context.Context, id string) (*AccountInfo, error) {
	up, err := r.upstream(ctx, id)
	if err != nil {
		return nil, err
	}
	auth, err := up.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := auth.UserInfo(); !ok {
		return nil, ErrAccountInfoUnavailable
	}
	exp, formatted, ok := auth.Expiration()
	if !ok {
		return nil, ErrAccountInfoUnavailable
	}
	return &AccountInfo{ExpDate: exp.Unix(), ExpiresAt: exp, Expiration: formatted}, nil
}

// Disconnect removes the session for id. It is idempotent.
func (r *Relay) Disconnect(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.store.Delete(ctx, id); err != nil {
		r.logger.Error().Err(err).Msg("delete session")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	metrics.RecordDisconnect()
	r.logger.Info().Msg("user logged out")
	return nil
}
