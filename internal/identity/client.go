package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
)

// ChangeEvent identifies why the session changed.
type ChangeEvent string

const (
	EventSignedIn       ChangeEvent = "SIGNED_IN"
	EventSignedOut      ChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
)

// SessionStore is the capability contract the auth coordinator requires of
// the hosted identity service. Session is nil for events and lookups when no
// identity is signed in.
type SessionStore interface {
	GetCurrentSession(ctx context.Context) (*model.Session, error)
	Subscribe(fn func(event ChangeEvent, session *model.Session)) (unsubscribe func())
	SignUp(ctx context.Context, email, password string) (*model.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context) error
}

// Options configure the HTTP adapter for the hosted identity service.
type Options struct {
	BaseURL       string
	ServiceKey    string
	JWTSecret     string
	JWTIssuer     string
	HTTPClient    *http.Client
	Redis         *redis.Client
	SessionTTL    time.Duration
	RefreshMargin time.Duration
}

// Client implements SessionStore against the identity service's REST surface.
// It caches the active session in memory and, when a redis handle is
// configured, persists it so a gateway restart can restore the session.
type Client struct {
	baseURL       string
	serviceKey    string
	jwtSecret     string
	jwtIssuer     string
	http          *http.Client
	cache         sessionCache
	refreshMargin time.Duration

	mu      sync.Mutex
	current *model.Session
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(event ChangeEvent, session *model.Session)
}

const sessionKey = "auth_gateway:session"

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	refreshMargin := opts.RefreshMargin
	if refreshMargin <= 0 {
		refreshMargin = time.Minute
	}
	var cache sessionCache
	if opts.Redis != nil {
		cache = &redisCache{client: opts.Redis, ttl: sessionTTL}
	}
	return &Client{
		baseURL:       opts.BaseURL,
		serviceKey:    opts.ServiceKey,
		jwtSecret:     opts.JWTSecret,
		jwtIssuer:     opts.JWTIssuer,
		http:          httpClient,
		cache:         cache,
		refreshMargin: refreshMargin,
	}
}

func (c *Client) Subscribe(fn func(event ChangeEvent, session *model.Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// emit notifies subscribers in registration order, outside the client lock so
// callbacks may call back into the client.
func (c *Client) emit(event ChangeEvent, session *model.Session) {
	c.mu.Lock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.fn(event, session)
	}
}

func (c *Client) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	session := c.current
	c.mu.Unlock()

	now := time.Now().UTC()
	if session != nil && !session.Expired(now) {
		return session, nil
	}
	if session != nil {
		refreshed, err := c.refreshSession(ctx, session.RefreshToken)
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNoSession) {
			c.mu.Lock()
			c.current = nil
			c.mu.Unlock()
			c.clearPersisted(ctx)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return refreshed, nil
	}

	restored, err := c.loadPersisted(ctx)
	if err != nil {
		return nil, err
	}
	if restored == nil {
		return nil, nil
	}

	if restored.Expired(now) {
		refreshed, err := c.refreshSession(ctx, restored.RefreshToken)
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNoSession) {
			// A dead refresh token means the persisted session is gone for
			// good; drop it rather than resurrecting it on the next call.
			c.clearPersisted(ctx)
			return nil, nil
		}
		if err != nil {
			// Transient failure: keep the persisted session so the next call
			// can retry the refresh once the service is back.
			return nil, err
		}
		return refreshed, nil
	}

	c.mu.Lock()
	c.current = restored
	c.mu.Unlock()
	return restored, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.post(ctx, "/token?grant_type=password", payload, "", &resp); err != nil {
		return nil, err
	}

	session, err := c.adoptSession(ctx, resp)
	if err != nil {
		return nil, err
	}
	c.emit(EventSignedIn, session)
	return session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp signupResponse
	if err := c.post(ctx, "/signup", payload, "", &resp); err != nil {
		return nil, err
	}

	identity := resp.identity()
	if identity.ID == "" {
		return nil, fmt.Errorf("identity: signup response missing identity id")
	}

	// When confirmations are disabled the service returns a session with the
	// new identity; adopt it so the coordinator sees the sign-in.
	if resp.AccessToken != "" {
		session, err := c.adoptSession(ctx, resp.tokenResponse)
		if err != nil {
			return nil, err
		}
		c.emit(EventSignedIn, session)
	}
	return &identity, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.current
	c.mu.Unlock()
	if session == nil {
		return nil
	}

	err := c.post(ctx, "/logout", nil, session.AccessToken, nil)
	if err != nil && !errorsIsInvalidSession(err) {
		return err
	}

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.clearPersisted(ctx)
	c.emit(EventSignedOut, nil)
	return nil
}

// errorsIsInvalidSession reports whether a logout failure just means the
// session was already dead upstream, which counts as a successful sign-out.
func errorsIsInvalidSession(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// StartAutoRefresh refreshes the access token before it expires, emitting
// TOKEN_REFRESHED on success. Runs until ctx is cancelled.
func (c *Client) StartAutoRefresh(ctx context.Context) {
	interval := c.refreshMargin / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				session := c.current
				c.mu.Unlock()
				if session == nil {
					continue
				}
				if session.ExpiresAt.After(time.Now().UTC().Add(c.refreshMargin)) {
					continue
				}
				if _, err := c.refreshSession(ctx, session.RefreshToken); err != nil {
					log.Printf("auth-gateway: token refresh failed: %v", err)
				}
			}
		}
	}()
}

func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}
	payload := map[string]string{"refresh_token": refreshToken}
	var resp tokenResponse
	if err := c.post(ctx, "/token?grant_type=refresh_token", payload, "", &resp); err != nil {
		return nil, err
	}
	session, err := c.adoptSession(ctx, resp)
	if err != nil {
		return nil, err
	}
	c.emit(EventTokenRefreshed, session)
	return session, nil
}

type identityPayload struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
	User         identityPayload `json:"user"`
}

type signupResponse struct {
	tokenResponse
	// Signup without auto-confirm returns the bare identity instead of a
	// token envelope.
	identityPayload
}

func (r signupResponse) identity() model.Identity {
	if r.User.ID != "" {
		return model.Identity{ID: r.User.ID, Email: r.User.Email, EmailConfirmedAt: r.User.EmailConfirmedAt}
	}
	return model.Identity{ID: r.ID, Email: r.Email, EmailConfirmedAt: r.EmailConfirmedAt}
}

func (c *Client) adoptSession(ctx context.Context, resp tokenResponse) (*model.Session, error) {
	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, fmt.Errorf("identity: malformed token response")
	}
	if c.jwtSecret != "" {
		if _, err := ParseAccessToken(c.jwtSecret, c.jwtIssuer, resp.AccessToken); err != nil {
			return nil, fmt.Errorf("identity: access token rejected: %w", err)
		}
	}

	session := &model.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Identity: model.Identity{
			ID:               resp.User.ID,
			Email:            resp.User.Email,
			EmailConfirmedAt: resp.User.EmailConfirmedAt,
		},
	}

	c.mu.Lock()
	c.current = session
	c.mu.Unlock()
	c.persist(ctx, session)
	return session, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, bearer string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("apikey", c.serviceKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return classify(resp.StatusCode, errResp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("identity: decode response: %w", err)
	}
	return nil
}

// Session persistence. The cache is optional; without it the session lives
// only for the lifetime of the process.

type sessionCache interface {
	load(ctx context.Context) ([]byte, error)
	store(ctx context.Context, data []byte)
	clear(ctx context.Context)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *redisCache) load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, sessionKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (r *redisCache) store(ctx context.Context, data []byte) {
	if err := r.client.Set(ctx, sessionKey, data, r.ttl).Err(); err != nil {
		log.Printf("auth-gateway: session persist failed: %v", err)
	}
}

func (r *redisCache) clear(ctx context.Context) {
	if err := r.client.Del(ctx, sessionKey).Err(); err != nil {
		log.Printf("auth-gateway: session clear failed: %v", err)
	}
}

type persistedSession struct {
	AccessToken      string     `json:"access_token"`
	RefreshToken     string     `json:"refresh_token"`
	ExpiresAt        time.Time  `json:"expires_at"`
	IdentityID       string     `json:"identity_id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

func (c *Client) persist(ctx context.Context, session *model.Session) {
	if c.cache == nil || session == nil {
		return
	}
	data, err := json.Marshal(persistedSession{
		AccessToken:      session.AccessToken,
		RefreshToken:     session.RefreshToken,
		ExpiresAt:        session.ExpiresAt,
		IdentityID:       session.Identity.ID,
		Email:            session.Identity.Email,
		EmailConfirmedAt: session.Identity.EmailConfirmedAt,
	})
	if err != nil {
		return
	}
	c.cache.store(ctx, data)
}

func (c *Client) loadPersisted(ctx context.Context) (*model.Session, error) {
	if c.cache == nil {
		return nil, nil
	}
	data, err := c.cache.load(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var stored persistedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		c.clearPersisted(ctx)
		return nil, nil
	}
	return &model.Session{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    stored.ExpiresAt,
		Identity: model.Identity{
			ID:               stored.IdentityID,
			Email:            stored.Email,
			EmailConfirmedAt: stored.EmailConfirmedAt,
		},
	}, nil
}

func (c *Client) clearPersisted(ctx context.Context) {
	if c.cache == nil {
		return
	}
	c.cache.clear(ctx)
}
