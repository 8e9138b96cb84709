package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kamalsharma29/crm-dashboard/internal/ai"
	"github.com/kamalsharma29/crm-dashboard/internal/analytics"
	"github.com/kamalsharma29/crm-dashboard/internal/api"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/attachments"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/leads"
	"github.com/kamalsharma29/crm-dashboard/internal/security"
	"github.com/kamalsharma29/crm-dashboard/internal/testutil"
	"github.com/kamalsharma29/crm-dashboard/internal/users"
	"github.com/kamalsharma29/crm-dashboard/pkg/crypto"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return g.reply, g.err
}

type fixture struct {
	*testutil.TestSetup
	router    http.Handler
	store     *attachments.MemoryStorage
	generator *stubGenerator
}

const maxLoginAttempts = 3

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tc := testutil.NewTestContext(t)
	logger := testutil.Logger()

	lockout := security.NewLockout(maxLoginAttempts, 30*time.Minute, security.WithSweepInterval(0))
	t.Cleanup(func() { lockout.Close() })

	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)

	store := attachments.NewMemoryStorage()
	gen := &stubGenerator{reply: "Subject: Hello\n\nHi there"}

	authService := auth.NewService(tc.DB, tc.JWTService, lockout, auth.DefaultPasswordPolicy())
	rules := validation.UploadRules{MaxSize: 1024, AllowedTypes: []string{"pdf", "png", "txt"}}

	limiter := security.NewRateLimiter(security.NewMemoryStore(security.WithSweepInterval(0)), 1000, time.Minute)

	router := api.NewRouter(api.RouterConfig{
		DB:                tc.DB,
		Logger:            logger,
		JWTService:        tc.JWTService,
		AuthService:       authService,
		LeadService:       leads.NewService(tc.DB, nil, logger),
		UserService:       users.NewService(tc.DB),
		AnalyticsService:  analytics.NewService(tc.DB),
		AIService:         ai.NewService(gen),
		AttachmentService: attachments.NewService(tc.DB, store, enc, rules, logger),
		RateLimiter:       limiter,
	})

	return &fixture{TestSetup: tc, router: router, store: store, generator: gen}
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	return f.serve(testutil.AuthenticatedRequest(t, method, path, body, token))
}

var errUpstream = errors.New("upstream unavailable")
