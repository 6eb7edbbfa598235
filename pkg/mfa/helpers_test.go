package mfa_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/audit"
	"github.com/dmitrymomot/restauth/pkg/credential"
	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/totp"
)

const testSecret = "test-signing-secret-0123456789abcdef"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubIssuer struct{}

func (stubIssuer) Issue(_ context.Context, userID string) (credential.Result, error) {
	return credential.OpaqueToken{Key: "key-" + userID}, nil
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *countingMetrics) Login(result string) { m.inc("login:" + result) }
func (m *countingMetrics) Verification(factor, result string) {
	m.inc("verify:" + factor + ":" + result)
}
func (m *countingMetrics) Enrollment(action, result string) { m.inc("enroll:" + action + ":" + result) }

func (m *countingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

type fixture struct {
	svc     *mfa.Service
	store   *mfa.MemoryStore
	clock   *fakeClock
	events  *audit.MemoryStorage
	metrics *countingMetrics
	cfg     mfa.Config
}

func newFixture(t *testing.T, mutate ...func(*mfa.Config)) *fixture {
	t.Helper()

	cfg := mfa.DefaultConfig(testSecret)
	for _, fn := range mutate {
		fn(&cfg)
	}

	f := &fixture{
		store:   mfa.NewMemoryStore(),
		clock:   newFakeClock(),
		events:  audit.NewMemoryStorage(),
		metrics: newCountingMetrics(),
		cfg:     cfg,
	}

	svc, err := mfa.NewService(cfg, f.store, stubIssuer{},
		mfa.WithClock(f.clock.Now),
		mfa.WithAuditLogger(audit.NewLogger(f.events, audit.WithClock(f.clock.Now))),
		mfa.WithMetrics(f.metrics),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// enroll runs the activation flow and returns the secret and recovery codes.
func (f *fixture) enroll(t *testing.T, userID string) (string, []string) {
	t.Helper()

	ctx := context.Background()
	init, err := f.svc.BeginActivation(ctx, mfa.User{ID: userID, AccountName: userID + "@example.com"})
	require.NoError(t, err)

	codes, err := f.svc.ConfirmActivation(ctx, userID, mfa.ActivationConfirm{
		Secret:          init.Secret,
		Code:            f.code(t, init.Secret),
		ActivationToken: init.ActivationToken,
	})
	require.NoError(t, err)
	return init.Secret, codes
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, f.clock.Now(), f.cfg.TOTPDigits, int(f.cfg.TOTPPeriod/time.Second))
	require.NoError(t, err)
	return code
}

func primaryFor(userID string) mfa.PrimaryAuthenticator {
	return mfa.PrimaryAuthenticatorFunc(func(_ context.Context, req mfa.LoginRequest) (string, error) {
		if req.Password != "correct horse" {
			return "", mfa.ErrInvalidCredentials
		}
		return userID, nil
	})
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
