// Package tokenstore keeps the two credential scopes of a browser: the
// remembered scope (credential pair plus user snapshot, long lived) and the
// temporary scope (a bare access token that dies with the browser session).
package tokenstore

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-web/internal/domain"
)

// Field names of the persisted scopes.
const (
	fieldUserData       = "userData"
	fieldAccessToken    = "accessToken"
	fieldRefreshToken   = "refreshToken"
	fieldTemporaryToken = "temporaryToken"

	rememberedPrefix = "storefront:remembered:"
	temporaryPrefix  = "storefront:temporary:"
)

// Credentials is the content of the remembered scope. Empty fields mean absent.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserData     *domain.User
}

// Store is the token storage of one browser. Methods never fail: backend errors
// are logged and reads degrade to empty values.
type Store interface {
	ReadCredentials(ctx context.Context) Credentials
	ReadTemporaryToken(ctx context.Context) string
	WriteRemembered(ctx context.Context, user *domain.User, accessToken, refreshToken string)
	WriteTemporary(ctx context.Context, accessToken string)
	ClearRemembered(ctx context.Context)
	ClearTemporary(ctx context.Context)
}

// Manager hands out per-browser stores over shared keyspaces.
type Manager struct {
	remembered   Keyspace
	temporary    Keyspace
	sealer       *Sealer
	rememberTTL  time.Duration
	temporaryTTL time.Duration
	logger       *zap.Logger
}

// ManagerConfig bundles the Manager dependencies.
type ManagerConfig struct {
	Remembered   Keyspace
	Temporary    Keyspace
	Sealer       *Sealer
	RememberTTL  time.Duration
	TemporaryTTL time.Duration
	Logger       *zap.Logger
}

// NewManager builds a Manager. Missing keyspaces fall back to in-memory ones.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Remembered == nil {
		cfg.Remembered = NewMemoryKeyspace()
	}
	if cfg.Temporary == nil {
		cfg.Temporary = NewMemoryKeyspace()
	}
	return &Manager{
		remembered:   cfg.Remembered,
		temporary:    cfg.Temporary,
		sealer:       cfg.Sealer,
		rememberTTL:  cfg.RememberTTL,
		temporaryTTL: cfg.TemporaryTTL,
		logger:       cfg.Logger,
	}
}

// For returns the store of the browser identified by its persistent device id
// and its browser-session id. Either id may be empty, in which case the matching
// scope reads as empty and ignores writes.
func (m *Manager) For(deviceID, tabID string) Store {
	return &browserStore{m: m, deviceID: deviceID, tabID: tabID}
}

type browserStore struct {
	m        *Manager
	deviceID string
	tabID    string
}

func (s *browserStore) rememberedKey() string { return rememberedPrefix + s.deviceID }
func (s *browserStore) temporaryKey() string { return temporaryPrefix + s.tabID }

func (s *browserStore) ReadCredentials(ctx context.Context) Credentials {
	if s.deviceID == "" {
		return Credentials{}
	}
	fields, err := s.m.remembered.Get(ctx, s.rememberedKey())
	if err != nil {
		s.m.logger.Warn("read remembered scope", zap.Error(err))
		return Credentials{}
	}
	creds := Credentials{
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
	}
	if raw := fields[fieldUserData]; raw != "" {
		creds.UserData = s.openUser(raw)
	}
	return creds
}

func (s *browserStore) openUser(raw string) *domain.User {
	plain := []byte(raw)
	if s.m.sealer != nil {
		var err error
		plain, err = s.m.sealer.Open(raw)
		if err != nil {
			s.m.logger.Warn("open user snapshot", zap.Error(err))
			return nil
		}
	}
	var user domain.User
	if err := json.Unmarshal(plain, &user); err != nil {
		s.m.logger.Warn("decode user snapshot", zap.Error(err))
		return nil
	}
	return &user
}

func (s *browserStore) sealUser(user *domain.User) string {
	if user == nil {
		return ""
	}
	plain, err := json.Marshal(user)
	if err != nil {
		s.m.logger.Warn("encode user snapshot", zap.Error(err))
		return ""
	}
	if s.m.sealer == nil {
		return string(plain)
	}
	sealed, err := s.m.sealer.Seal(plain)
	if err != nil {
		s.m.logger.Warn("seal user snapshot", zap.Error(err))
		return ""
	}
	return sealed
}

func (s *browserStore) ReadTemporaryToken(ctx context.Context) string {
	if s.tabID == "" {
		return ""
	}
	fields, err := s.m.temporary.Get(ctx, s.temporaryKey())
	if err != nil {
		s.m.logger.Warn("read temporary scope", zap.Error(err))
		return ""
	}
	return fields[fieldTemporaryToken]
}

func (s *browserStore) WriteRemembered(ctx context.Context, user *domain.User, accessToken, refreshToken string) {
	if s.deviceID == "" {
		s.m.logger.Warn("remembered write without device id")
		return
	}
	fields := map[string]string{
		fieldUserData:     s.sealUser(user),
		fieldAccessToken:  accessToken,
		fieldRefreshToken: refreshToken,
	}
	if err := s.m.remembered.Set(ctx, s.rememberedKey(), fields, s.m.rememberTTL); err != nil {
		s.m.logger.Warn("write remembered scope", zap.Error(err))
	}
}

func (s *browserStore) WriteTemporary(ctx context.Context, accessToken string) {
	if s.tabID == "" {
		s.m.logger.Warn("temporary write without browser session id")
		return
	}
	fields := map[string]string{fieldTemporaryToken: accessToken}
	if err := s.m.temporary.Set(ctx, s.temporaryKey(), fields, s.m.temporaryTTL); err != nil {
		s.m.logger.Warn("write temporary scope", zap.Error(err))
	}
}

func (s *browserStore) ClearRemembered(ctx context.Context) {
	if s.deviceID == "" {
		return
	}
	if err := s.m.remembered.Delete(ctx, s.rememberedKey()); err != nil {
		s.m.logger.Warn("clear remembered scope", zap.Error(err))
	}
}

func (s *browserStore) ClearTemporary(ctx context.Context) {
	if s.tabID == "" {
		return
	}
	if err := s.m.temporary.Delete(ctx, s.temporaryKey()); err != nil {
		s.m.logger.Warn("clear temporary scope", zap.Error(err))
	}
}
