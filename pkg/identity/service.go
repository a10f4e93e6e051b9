// Copyright 2025 Veritas Documents
//
// Identity & Session - activation (one-time invite consumption, anchoring
// a USER_REGISTRATION transaction), challenge-response login, and opaque
// session issuance. Every entry point validates shape and signature before
// touching shared state.
package identity

import (
	"log"
	"os"
	"time"

	"github.com/veritas/vdc/pkg/ledger"
	"github.com/veritas/vdc/pkg/storage"
	"github.com/veritas/vdc/pkg/sysid"
)

// DefaultChallengeSkew is the maximum age a login challenge's timestamp may
// have before it is rejected as stale.
const DefaultChallengeSkew = 5 * time.Minute

// DefaultSessionTTL is how long an issued session token remains valid.
const DefaultSessionTTL = 24 * time.Hour

const sessionKeyPrefix = "identity:session:"
const inviteKeyPrefix = "identity:invite:"

// inviteAAD binds the activation-token envelope so an invite ciphertext
// cannot be replayed into a different record class or key.
var inviteAAD = []byte("veritas-invite-v1")

// Service is the activation/login/session surface. It owns no HTTP
// handlers - callers drive Activate, Login, and ValidateSession from
// whatever transport they expose.
type Service struct {
	fabric   *storage.Fabric
	kv       storage.KVTier
	identity *sysid.Identity
	ledger   *ledger.Engine
	registry *ledger.Registry

	challengeSkew time.Duration
	sessionTTL    time.Duration
	clock         func() time.Time
	logger        *log.Logger
}

// Option configures a Service at construction.
type Option func(*Service)

// WithChallengeSkew overrides DefaultChallengeSkew.
func WithChallengeSkew(d time.Duration) Option {
	return func(s *Service) { s.challengeSkew = d }
}

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) { s.sessionTTL = d }
}

// WithLogger overrides the default stdlib logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService builds a Service over the storage fabric, a KV tier for
// session bookkeeping (the same pattern the ledger engine uses for its
// tip pointer and tx index), the system identity (its KEM half seals
// activation tokens; its signing half is exercised indirectly through the
// ledger engine), and the ledger engine/registry that anchor and resolve
// USER_REGISTRATION state.
func NewService(fabric *storage.Fabric, kv storage.KVTier, identity *sysid.Identity, engine *ledger.Engine, registry *ledger.Registry, opts ...Option) *Service {
	s := &Service{
		fabric:        fabric,
		kv:            kv,
		identity:      identity,
		ledger:        engine,
		registry:      registry,
		challengeSkew: DefaultChallengeSkew,
		sessionTTL:    DefaultSessionTTL,
		clock:         time.Now,
		logger:        log.New(os.Stdout, "[identity] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
