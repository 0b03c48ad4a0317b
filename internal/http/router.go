package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tenantcore/internal/domain/repository"
)

// NewRouter arma el árbol de rutas completo. metricsHandler y healthHandler
// llegan de afuera para que este paquete no dependa del registry ni del pool.
func NewRouter(api *API, healthHandler, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithRecover)
	r.Use(WithLogging)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if healthHandler != nil {
		r.Method(http.MethodGet, "/readyz", healthHandler)
	}
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	guard := AccessGuard(api.Auth, api.Cookies.AccessName)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", api.Register)
		r.Post("/login", api.Login)
		r.Post("/logout", api.Logout)
		r.Post("/refresh", api.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Get("/me", api.Me)
		})
	})

	r.Route("/v1/orgs/{tenantID}/members", func(r chi.Router) {
		r.Use(guard)

		// Listar alcanza con ser miembro, mutaciones requieren admin.
		r.With(RoleGuard(api.RBAC,
			repository.RoleAdmin, repository.RoleMember, repository.RoleViewer)).
			Get("/", api.ListMembers)

		r.Group(func(r chi.Router) {
			r.Use(RoleGuard(api.RBAC, repository.RoleAdmin))
			r.Post("/", api.AddMember)
			r.Put("/{userID}/role", api.ChangeRole)
			r.Delete("/{userID}", api.RemoveMember)
		})
	})

	return r
}
