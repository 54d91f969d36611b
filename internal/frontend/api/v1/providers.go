package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

// providerView is the masked provider representation served to clients.
// APIKeyDisplay shows at most the first two and last four characters of
// the stored key; the key itself never leaves the secret store.
type providerView struct {
	ID             string              `json:"id"`
	Alias          string              `json:"alias,omitempty"`
	Type           settings.RecordType `json:"type"`
	BaseURL        string              `json:"base_url,omitempty"`
	AuthHeader     string              `json:"auth_header,omitempty"`
	AuthPrefix     string              `json:"auth_prefix,omitempty"`
	ModelsEndpoint string              `json:"models_endpoint,omitempty"`
	ModelsJSONPath string              `json:"models_json_path,omitempty"`
	PayloadSchema  string              `json:"payload_schema,omitempty"`
	Models         []string            `json:"models"`
	LastAuthCheck  *time.Time          `json:"last_auth_check,omitempty"`
	APIKeyDisplay  string              `json:"api_key_display"`
}

func (a *API) maskedProvider(ctx context.Context, rec settings.ProviderRecord) providerView {
	view := providerView{
		ID:             rec.ID,
		Alias:          rec.Alias,
		Type:           rec.Type,
		BaseURL:        rec.BaseURL,
		AuthHeader:     rec.AuthHeader,
		AuthPrefix:     rec.AuthPrefix,
		ModelsEndpoint: rec.ModelsEndpoint,
		ModelsJSONPath: rec.ModelsJSONPath,
		PayloadSchema:  rec.PayloadSchema,
		Models:         rec.Models,
		LastAuthCheck:  rec.LastAuthCheck,
	}
	if view.Models == nil {
		view.Models = []string{}
	}
	if cred, err := a.store.Secret(ctx, rec.ID); err == nil {
		view.APIKeyDisplay = settings.ObfuscateKey(cred.APIKey)
	}
	return view
}

func (a *API) handleListProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	views := make([]providerView, 0, len(ids))
	for _, id := range ids {
		views = append(views, a.maskedProvider(ctx, cfg.Providers[id]))
	}
	respondJSON(w, r, http.StatusOK, views)
}

type createProviderRequest struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Name           string            `json:"name"`
	Alias          string            `json:"alias"`
	APIKey         string            `json:"api_key"`
	Headers        map[string]string `json:"headers"`
	BaseURL        string            `json:"base_url"`
	AuthHeader     string            `json:"auth_header"`
	AuthPrefix     string            `json:"auth_prefix"`
	ModelsEndpoint string            `json:"models_endpoint"`
	ModelsJSONPath string            `json:"models_json_path"`
	PayloadSchema  string            `json:"payload_schema"`
}

func (req createProviderRequest) record() settings.ProviderRecord {
	rec := settings.ProviderRecord{
		ID:             req.ID,
		Alias:          req.Alias,
		Type:           settings.RecordType(req.Type),
		BaseURL:        req.BaseURL,
		AuthHeader:     req.AuthHeader,
		AuthPrefix:     req.AuthPrefix,
		ModelsEndpoint: req.ModelsEndpoint,
		ModelsJSONPath: req.ModelsJSONPath,
		PayloadSchema:  req.PayloadSchema,
	}
	if rec.ID == "" && req.Name != "" {
		rec.ID = settings.DeriveCustomID(req.Name)
	}
	if rec.Alias == "" && req.Name != "" {
		rec.Alias = req.Name
	}
	return rec
}

func (a *API) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	rec, err := settings.NormalizeRecord(req.record())
	if err != nil {
		respondError(w, r, err)
		return
	}
	cred := settings.Credential{APIKey: req.APIKey, Headers: req.Headers}
	if err := a.store.CreateProvider(ctx, rec, cred); err != nil {
		respondError(w, r, err)
		return
	}
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, a.maskedProvider(ctx, cfg.Providers[rec.ID]))
}

func (a *API) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")
	ctx := r.Context()
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, ok := cfg.Providers[id]
	if !ok {
		respondError(w, r, fmt.Errorf("%w: provider %q", settings.ErrNotFound, id))
		return
	}
	respondJSON(w, r, http.StatusOK, a.maskedProvider(ctx, rec))
}

// updateProviderRequest carries a partial record update. Nil fields keep
// their current values. The record type is immutable; delete and
// recreate to change it.
type updateProviderRequest struct {
	Alias          *string           `json:"alias"`
	APIKey         *string           `json:"api_key"`
	BaseURL        *string           `json:"base_url"`
	AuthHeader     *string           `json:"auth_header"`
	AuthPrefix     *string           `json:"auth_prefix"`
	ModelsEndpoint *string           `json:"models_endpoint"`
	ModelsJSONPath *string           `json:"models_json_path"`
	PayloadSchema  *string           `json:"payload_schema"`
	Headers        map[string]string `json:"headers"`
}

func (a *API) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")
	var req updateProviderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, ok := cfg.Providers[id]
	if !ok {
		respondError(w, r, fmt.Errorf("%w: provider %q", settings.ErrNotFound, id))
		return
	}
	if req.Alias != nil {
		rec.Alias = *req.Alias
	}
	if req.BaseURL != nil {
		rec.BaseURL = *req.BaseURL
	}
	if req.AuthHeader != nil {
		rec.AuthHeader = *req.AuthHeader
	}
	if req.AuthPrefix != nil {
		rec.AuthPrefix = *req.AuthPrefix
	}
	if req.ModelsEndpoint != nil {
		rec.ModelsEndpoint = *req.ModelsEndpoint
	}
	if req.ModelsJSONPath != nil {
		rec.ModelsJSONPath = *req.ModelsJSONPath
	}
	if req.PayloadSchema != nil {
		rec.PayloadSchema = *req.PayloadSchema
	}

	// A zero credential leaves the stored secret untouched; otherwise the
	// stored credential is overlaid with the supplied fields so rotating
	// the key keeps existing headers.
	var cred settings.Credential
	if req.APIKey != nil || req.Headers != nil {
		cred, _ = a.store.Secret(ctx, id)
		if req.APIKey != nil {
			cred.APIKey = *req.APIKey
		}
		if req.Headers != nil {
			cred.Headers = req.Headers
		}
	}

	if err := a.store.UpdateProvider(ctx, rec, cred); err != nil {
		respondError(w, r, err)
		return
	}
	updated, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a.maskedProvider(ctx, updated.Providers[rec.ID]))
}

func (a *API) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")
	if err := a.store.RemoveProvider(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"id": id})
}

// handleTestProvider probes the provider with the stored credential.
// On success the discovered model list and check timestamp are persisted
// on the record.
func (a *API) handleTestProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "providerID")
	ctx := r.Context()
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, ok := cfg.Providers[id]
	if !ok {
		respondError(w, r, fmt.Errorf("%w: provider %q", settings.ErrNotFound, id))
		return
	}
	cred, err := a.store.Secret(ctx, id)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		respondError(w, r, err)
		return
	}

	models, err := a.probe.ListModels(ctx, settings.ProbeTarget(rec, cred), cred.APIKey)
	if err != nil {
		if errors.Is(err, llm.ErrUnauthorized) {
			respondError(w, r, err)
			return
		}
		respondErrorCode(w, r, http.StatusBadGateway, codeProbeFailed, "provider did not answer the model listing request")
		return
	}
	if models == nil {
		models = []string{}
	}

	checkedAt := time.Now().UTC()
	if err := a.store.RecordAuthCheck(ctx, id, models, checkedAt); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{
		"models":     models,
		"count":      len(models),
		"checked_at": checkedAt,
	})
}
