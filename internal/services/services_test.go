package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parkingapp/internal/backend"
	"parkingapp/internal/config"
	"parkingapp/internal/security"
	"parkingapp/internal/shared/testutil"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
)

// fakeOracle rejects the configured categories and records every check
type fakeOracle struct {
	security.NoopOracle

	mu       sync.Mutex
	reject   map[security.Category][]string
	err      error
	checks   []security.Category
	payloads []map[string]any
}

func (o *fakeOracle) Check(_ context.Context, category security.Category, req security.Request) (security.Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checks = append(o.checks, category)
	o.payloads = append(o.payloads, req.Payload)
	if o.err != nil {
		return security.Verdict{}, o.err
	}
	if reasons, ok := o.reject[category]; ok {
		return security.Verdict{Allowed: false, Reasons: reasons}, nil
	}
	return security.Allow(), nil
}

func (o *fakeOracle) Name() string { return "fake" }

func (o *fakeOracle) Checks() []security.Category {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]security.Category(nil), o.checks...)
}

func (o *fakeOracle) LastPayload() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.payloads) == 0 {
		return nil
	}
	return o.payloads[len(o.payloads)-1]
}

type testEnv struct {
	fake     *testutil.FakeBackend
	oracle   *fakeOracle
	sessions *store.Sessions
	store    *store.Store
	token    string
	logs     *testutil.BufferedSlogHandler
	deps     Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, handler := testutil.NewTestLogger(t)
	fake := testutil.NewFakeBackend(t)

	client, err := backend.New(config.BackendConfig{BaseURL: fake.URL(), Timeout: 2 * time.Second}, logger)
	require.NoError(t, err)

	oracle := &fakeOracle{reject: map[security.Category][]string{}}
	token := fake.Fixtures.Session().Token
	sessions := store.NewSessions(time.Hour)
	st := store.New()
	sessions.Open(token, st)

	return &testEnv{
		fake:     fake,
		oracle:   oracle,
		sessions: sessions,
		store:    st,
		token:    token,
		logs:     handler,
		deps: Deps{
			Backend:         client,
			Gate:            security.NewGate(oracle, logger, nil, 0),
			Validator:       validation.NewValidator(nil, logger),
			Files:           validation.NewFileValidator(logger, 0),
			Sessions:        sessions,
			Logger:          logger,
			MaxPaymentCents: 100000,
			Now:             func() time.Time { return fake.Fixtures.Now },
		},
	}
}

// ctx carries the fixture session the way the transport attaches it
func (e *testEnv) ctx() context.Context {
	return store.WithStore(backend.WithToken(context.Background(), e.token), e.store)
}

// signIn marks the fixture session as signed in
func (e *testEnv) signIn() {
	sess := e.fake.Fixtures.Session()
	e.store.Auth.Fulfilled(func(store.AuthData) store.AuthData {
		return store.AuthData{User: &sess.User, Token: sess.Token, IsAuthenticated: true}
	})
}
