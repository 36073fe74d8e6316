package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	id "didledger/pkg/domain"
	"didledger/pkg/requestcontext"
	"didledger/pkg/testutil"
)

type stubModule struct {
	caller id.Identity
}

func (m *stubModule) RegisterPublic(r chi.Router) {
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (m *stubModule) RegisterProtected(r chi.Router) {
	r.Post("/things", func(w http.ResponseWriter, r *http.Request) {
		m.caller = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusCreated)
	})
}

type stubReadOnly struct{}

func (stubReadOnly) Register(r chi.Router) {
	r.Get("/log", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type stubValidator struct{}

func (stubValidator) ValidateCaller(token string) (id.Identity, error) {
	if token != "good" {
		return "", errors.New("bad token")
	}
	return "0xaddr1", nil
}

func newTestRouter(module *stubModule, checks map[string]HealthCheck) http.Handler {
	return NewRouter(Config{
		Modules:      []ModuleHandler{module},
		ReadOnly:     []ReadOnlyHandler{stubReadOnly{}},
		Validator:    stubValidator{},
		HealthChecks: checks,
	})
}

func TestRouterPublicAndProtected(t *testing.T) {
	module := &stubModule{}
	router := newTestRouter(module, nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/things/1"))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/log"))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/things", map[string]string{}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthenticated")

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/things", map[string]string{}), "good")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, id.Identity("0xaddr1"), module.caller)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&stubModule{}, nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/things/1"))

	testutil.AssertStatus(t, rr, http.StatusMethodNotAllowed)
}

func TestRouterHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router := newTestRouter(&stubModule{}, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("a failing check degrades", func(t *testing.T) {
		router := newTestRouter(&stubModule{}, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		resp := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Checks["redis"])
		assert.Equal(t, "ok", resp.Checks["postgres"])
	})
}
