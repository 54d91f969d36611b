package api

import (
	"fmt"
	"net/http"

	"dario.cat/mergo"

	"github.com/sourcerer-app/sourcerer/internal/settings"
)

// configView mirrors the configuration document with provider secrets
// replaced by a masked display value.
type configView struct {
	Version            int                      `json:"version"`
	ActiveProvider     string                   `json:"active_provider"`
	ActiveModel        string                   `json:"active_model"`
	Providers          map[string]providerView  `json:"providers"`
	Inference          settings.Inference       `json:"inference"`
	ImageGeneration    settings.ImageGeneration `json:"image_generation"`
	Limits             settings.Limits          `json:"limits"`
	OnboardingComplete bool                     `json:"onboarding_complete"`
}

func (a *API) configView(r *http.Request, cfg *settings.Config) configView {
	view := configView{
		Version:            cfg.Version,
		ActiveProvider:     cfg.ActiveProvider,
		ActiveModel:        cfg.ActiveModel,
		Providers:          make(map[string]providerView, len(cfg.Providers)),
		Inference:          cfg.Inference,
		ImageGeneration:    cfg.ImageGeneration,
		Limits:             cfg.Limits,
		OnboardingComplete: cfg.OnboardingComplete,
	}
	for id, rec := range cfg.Providers {
		view.Providers[id] = a.maskedProvider(r.Context(), rec)
	}
	return view
}

func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.store.Load(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a.configView(r, cfg))
}

func (a *API) handleFirstRun(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]bool{"first_run": a.store.FirstRun()})
}

func (a *API) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ids, err := a.store.SecretIDs(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	problems := settings.Validate(cfg, ids)
	if problems == nil {
		problems = []string{}
	}
	respondJSON(w, r, http.StatusOK, map[string]any{
		"valid":  len(problems) == 0,
		"errors": problems,
	})
}

type activeProviderRequest struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
}

func (a *API) handleSetActiveProvider(w http.ResponseWriter, r *http.Request) {
	var req activeProviderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	if err := a.store.SetActiveProvider(ctx, req.ProviderID, req.ModelID); err != nil {
		respondError(w, r, err)
		return
	}
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{
		"active_provider": cfg.ActiveProvider,
		"active_model":    cfg.ActiveModel,
	})
}

// inferenceUpdate carries a partial update. Nil fields keep their
// current values; an explicitly sent zero is applied as sent.
type inferenceUpdate struct {
	Temperature      *float64 `json:"temperature"`
	TopP             *float64 `json:"top_p"`
	MaxTokens        *int     `json:"max_tokens"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	Streaming        *bool    `json:"streaming"`
}

func (a *API) handleUpdateInference(w http.ResponseWriter, r *http.Request) {
	var req inferenceUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var out settings.Inference
	err := a.store.Save(r.Context(), func(tx *settings.Txn) error {
		cur := tx.Config.Inference
		fill := inferenceUpdate{
			Temperature:      &cur.Temperature,
			TopP:             &cur.TopP,
			MaxTokens:        &cur.MaxTokens,
			PresencePenalty:  &cur.PresencePenalty,
			FrequencyPenalty: &cur.FrequencyPenalty,
			Streaming:        &cur.Streaming,
		}
		if err := mergo.Merge(&req, fill, mergo.WithTransformers(keepSetFields{})); err != nil {
			return fmt.Errorf("%w: merging inference defaults: %v", settings.ErrValidation, err)
		}
		tx.Config.Inference = settings.Inference{
			Temperature:      *req.Temperature,
			TopP:             *req.TopP,
			MaxTokens:        *req.MaxTokens,
			PresencePenalty:  *req.PresencePenalty,
			FrequencyPenalty: *req.FrequencyPenalty,
			Streaming:        *req.Streaming,
		}
		out = tx.Config.Inference
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, out)
}

// imageGenerationUpdate carries a partial update of the image settings.
type imageGenerationUpdate struct {
	Enabled      *bool   `json:"enabled"`
	Provider     *string `json:"provider"`
	Model        *string `json:"model"`
	OutputFormat *string `json:"output_format"`
}

func (a *API) handleUpdateImageGeneration(w http.ResponseWriter, r *http.Request) {
	var req imageGenerationUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var out settings.ImageGeneration
	err := a.store.Save(r.Context(), func(tx *settings.Txn) error {
		cur := tx.Config.ImageGeneration
		fill := imageGenerationUpdate{
			Enabled:      &cur.Enabled,
			Provider:     &cur.Provider,
			Model:        &cur.Model,
			OutputFormat: &cur.OutputFormat,
		}
		if err := mergo.Merge(&req, fill, mergo.WithTransformers(keepSetFields{})); err != nil {
			return fmt.Errorf("%w: merging image generation settings: %v", settings.ErrValidation, err)
		}
		tx.Config.ImageGeneration = settings.ImageGeneration{
			Enabled:      *req.Enabled,
			Provider:     *req.Provider,
			Model:        *req.Model,
			OutputFormat: *req.OutputFormat,
		}
		out = tx.Config.ImageGeneration
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (a *API) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	err := a.store.Save(r.Context(), func(tx *settings.Txn) error {
		tx.Config.OnboardingComplete = true
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"onboarding_complete": true})
}
