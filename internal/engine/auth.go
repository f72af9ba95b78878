package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/lynxcheck/internal/metrics"
)

const (
	// DefaultAuthTTL is how long an issued credential is reused
	DefaultAuthTTL = 60 * time.Minute

	containerIDLength = 15
	afterInstallURL   = "https://www.grammarly.com/after_install_page?extension_install=true&utm_medium=store&utm_source=firefox"
	refreshKey        = "credential"
)

var (
	// ErrAuthStatus is returned for a non-200 auth response
	ErrAuthStatus = errors.New("invalid auth response status")
	// ErrAuthCookies is returned when the auth response lacks session cookies
	ErrAuthCookies = errors.New("authentication cookie has not been received")
)

// Credentialer yields the credential appended to the websocket cookie
type Credentialer interface {
	Credential(ctx context.Context) string
}

// AuthToken is one issued credential
type AuthToken struct {
	Credential string
	IssuedAt   time.Time
}

// AuthConfig configures an AuthCache
type AuthConfig struct {
	URL     string        // Auth endpoint (default: DefaultAuthURL)
	Profile Profile       // Client identity
	TTL     time.Duration // Credential lifetime (default: 60m)
	Client  *http.Client  // HTTP client (default: 30s timeout)
	Clock   func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// AuthCache memoizes the anonymous session credential for a fixed TTL.
// Concurrent callers during a refresh share one request.
type AuthCache struct {
	url     string
	profile Profile
	ttl     time.Duration
	client  *http.Client
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	token  AuthToken
	valid  bool
	flight singleflight.Group
}

// NewAuthCache creates an AuthCache
func NewAuthCache(cfg AuthConfig) *AuthCache {
	if cfg.URL == "" {
		cfg.URL = DefaultAuthURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultAuthTTL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &AuthCache{
		url:     cfg.URL,
		profile: cfg.Profile.WithDefaults(),
		ttl:     cfg.TTL,
		client:  cfg.Client,
		now:     cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Credential returns the cached credential, issuing a new one when none is
// cached or the cached one has expired. A failed retrieval still yields a
// credential, with empty session fields. The refresh outlives a cancelled
// caller so the cached credential reflects the authority's answer.
func (a *AuthCache) Credential(ctx context.Context) string {
	if tok, ok := a.current(); ok {
		return tok.Credential
	}

	v, _, _ := a.flight.Do(refreshKey, func() (interface{}, error) {
		if tok, ok := a.current(); ok {
			return tok, nil
		}
		tok := AuthToken{Credential: a.retrieve(context.WithoutCancel(ctx)), IssuedAt: a.now()}
		a.mu.Lock()
		a.token = tok
		a.valid = true
		a.mu.Unlock()
		return tok, nil
	})
	return v.(AuthToken).Credential
}

// Token returns the cached token without refreshing it
func (a *AuthCache) Token() (AuthToken, bool) {
	return a.current()
}

// Invalidate drops the cached credential so the next call refreshes it
func (a *AuthCache) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.valid = false
	a.token = AuthToken{}
}

func (a *AuthCache) current() (AuthToken, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.valid || !a.now().Before(a.token.IssuedAt.Add(a.ttl)) {
		return AuthToken{}, false
	}
	return a.token, true
}

// retrieve performs the anonymous login exchange
func (a *AuthCache) retrieve(ctx context.Context) string {
	containerID := newContainerID()
	redirect := redirectLocation()
	var grauth, csrf string

	requestURL := a.url + "?app=firefoxExt&containerId=" + url.QueryEscape(containerID)
	cookies, err := a.fetchCookies(ctx, requestURL, containerID, redirect)
	if err == nil {
		grauth = cookies["grauth"]
		csrf = cookies["csrf-token"]
		if grauth == "" || csrf == "" {
			err = ErrAuthCookies
		}
	}
	if err != nil {
		a.logger.Error("could not complete auth request",
			zap.String("url", requestURL),
			zap.Error(err))
		a.metrics.AuthRefresh(false)
	} else {
		a.logger.Debug("issued credential", zap.String("container_id", containerID))
		a.metrics.AuthRefresh(true)
	}

	return fmt.Sprintf("gnar_containerId=%s;redirect_location=%s;grauth=%s;csrf-token=%s;",
		containerID, redirect, grauth, csrf)
}

func (a *AuthCache) fetchCookies(ctx context.Context, requestURL, containerID, redirect string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = a.profile.header()
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("X-Container-Id", containerID)
	req.Header.Set("X-Client-Version", a.profile.ClientVersion)
	req.Header.Set("X-Client-Type", a.profile.ClientType)
	req.Header.Set("Cookie", fmt.Sprintf("gnar_containerId=%s;redirect_location=%s;", containerID, redirect)+a.profile.Cookie)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrAuthStatus, resp.StatusCode)
	}

	cookies := make(map[string]string)
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}
	return cookies, nil
}

func newContainerID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:containerIDLength]
}

func redirectLocation() string {
	payload, _ := json.Marshal(struct {
		Type     string `json:"type"`
		Location string `json:"location"`
	}{Location: afterInstallURL})
	return base64.StdEncoding.EncodeToString(payload)
}
