package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

// API serves the configuration endpoints on top of the settings store.
// Handlers never return secret material; provider views carry an
// obfuscated key display instead.
type API struct {
	store *settings.Store
	probe *llm.Probe
}

// New creates an API bound to the given store and probe.
func New(store *settings.Store, probe *llm.Probe) *API {
	return &API{store: store, probe: probe}
}

// ConfigureRoutes mounts every endpoint on the given router. The health
// endpoint stays outside the auth middlewares so liveness checks work
// without credentials.
func (a *API) ConfigureRoutes(r chi.Router, authMiddlewares ...func(http.Handler) http.Handler) {
	r.Get("/health", a.handleHealth)

	r.Group(func(r chi.Router) {
		for _, mw := range authMiddlewares {
			r.Use(mw)
		}

		r.Route("/config", func(r chi.Router) {
			r.Get("/", a.handleGetConfig)
			r.Get("/first-run", a.handleFirstRun)
			r.Get("/validate", a.handleValidateConfig)
			r.Put("/active-provider", a.handleSetActiveProvider)
			r.Put("/inference", a.handleUpdateInference)
			r.Put("/image-generation", a.handleUpdateImageGeneration)
			r.Put("/onboarding-complete", a.handleCompleteOnboarding)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", a.handleListProviders)
			r.Post("/", a.handleCreateProvider)
			r.Route("/{providerID}", func(r chi.Router) {
				r.Get("/", a.handleGetProvider)
				r.Put("/", a.handleUpdateProvider)
				r.Delete("/", a.handleDeleteProvider)
				r.Post("/test", a.handleTestProvider)
			})
		})

		r.Post("/export", a.handleExport)
		r.Post("/import", a.handleImport)
	})
}
