package authstate

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/drshelkeabhijeet/Studentattendance/internal/identity"
	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
	"github.com/drshelkeabhijeet/Studentattendance/internal/profile"
)

// ErrProfileSync signals that the credential operation succeeded but the
// profile record could not be written or read, leaving an identity without
// profile data. Never conflated with credential errors.
var ErrProfileSync = errors.New("authstate: profile out of sync with identity")

type State string

const (
	StateUninitialized          State = "uninitialized"
	StateRestoring              State = "restoring"
	StateAnonymous              State = "anonymous"
	StateAuthenticatedNoProfile State = "authenticated-no-profile"
	StateAuthenticated          State = "authenticated"
)

// Coordinator is the single source of truth for identity, profile, session
// and loading state. It owns all mutation of that state: session changes
// arrive through the store's notifications, profile lookups are keyed to the
// session generation that issued them, and results for superseded sessions
// are discarded.
type Coordinator struct {
	store    identity.SessionStore
	profiles profile.Repository

	mu          sync.Mutex
	state       State
	session     *model.Session
	profileRec  *model.Profile
	generation  uint64
	pending     int
	unsubscribe func()
	ctx         context.Context
}

func New(store identity.SessionStore, profiles profile.Repository) *Coordinator {
	return &Coordinator{
		store:    store,
		profiles: profiles,
		state:    StateUninitialized,
		ctx:      context.Background(),
	}
}

// Start restores any existing session and subscribes to session changes.
// ctx bounds the coordinator's background profile lookups.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.state = StateRestoring
	c.pending++
	c.mu.Unlock()

	c.unsubscribe = c.store.Subscribe(func(event identity.ChangeEvent, session *model.Session) {
		c.applySession(session)
	})

	session, err := c.store.GetCurrentSession(ctx)

	c.mu.Lock()
	c.pending--
	superseded := c.generation != 0
	c.mu.Unlock()

	// A sign-in or sign-out notification that raced the initial fetch wins.
	if superseded {
		return
	}
	if err != nil {
		log.Printf("auth-gateway: session restore failed: %v", err)
		session = nil
	}
	c.applySession(session)
}

// Close detaches from the session store. State stays readable but no longer
// tracks changes.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// applySession accepts a session change, bumping the generation so profile
// results issued for earlier sessions are dropped on arrival.
func (c *Coordinator) applySession(session *model.Session) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.session = session
	c.profileRec = nil
	if session == nil {
		c.state = StateAnonymous
		c.mu.Unlock()
		return
	}
	c.state = StateRestoring
	c.pending++
	identityID := session.Identity.ID
	ctx := c.ctx
	c.mu.Unlock()

	go c.fetchProfile(ctx, gen, identityID)
}

func (c *Coordinator) fetchProfile(ctx context.Context, gen uint64, identityID string) {
	record, err := c.profiles.GetByIdentityID(ctx, identityID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.generation != gen {
		return
	}
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			log.Printf("auth-gateway: profile lookup failed for %s: %v", identityID, err)
		}
		c.profileRec = nil
		c.state = StateAuthenticatedNoProfile
		return
	}
	c.profileRec = &record
	c.state = StateAuthenticated
}

// SignIn delegates to the session store. The profile is not fetched here; it
// arrives through the change-notification path, so callers needing it
// synchronously must poll Profile.
func (c *Coordinator) SignIn(ctx context.Context, email, password string) error {
	c.beginOp()
	defer c.endOp()
	_, err := c.store.SignInWithPassword(ctx, email, password)
	return err
}

// SignUp creates the credential and then immediately inserts the profile
// record under the new identity id. An insert failure after a successful
// credential creation surfaces as ErrProfileSync so callers can message the
// inconsistency instead of swallowing it.
func (c *Coordinator) SignUp(ctx context.Context, email, password string, record model.Profile) error {
	c.beginOp()
	defer c.endOp()

	id, err := c.store.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	record.ID = id.ID
	record.Email = id.Email
	if err := c.profiles.Insert(ctx, record); err != nil {
		return errors.Join(ErrProfileSync, err)
	}
	return nil
}

// SignOut delegates to the session store and clears local state optimistically
// on success; the store's own SIGNED_OUT notification confirms afterwards.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.beginOp()
	defer c.endOp()

	if err := c.store.SignOut(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.generation++
	c.session = nil
	c.profileRec = nil
	c.state = StateAnonymous
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) beginOp() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
}

func (c *Coordinator) endOp() {
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Session() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Profile returns the authenticated profile, or nil while anonymous,
// restoring, or when the profile has not resolved.
func (c *Coordinator) Profile() *model.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profileRec == nil {
		return nil
	}
	record := *c.profileRec
	return &record
}

// Loading reports whether any operation or lookup is in flight. Concurrent
// operations each hold a reference, so one finishing does not clear the flag
// for the others.
func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}
