package api

import (
	"errors"
	"net/http"

	"github.com/sourcerer-app/sourcerer/internal/settings"
)

type exportRequest struct {
	Passphrase     string `json:"passphrase"`
	IncludeSecrets bool   `json:"include_secrets"`
}

// handleExport serializes the configuration into a portable bundle.
// Without secrets the content is plain YAML; with secrets it is an
// encrypted blob under the supplied passphrase.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	payload, err := a.store.Export(r.Context(), req.Passphrase, req.IncludeSecrets)
	if err != nil {
		respondError(w, r, err)
		return
	}
	format := "yaml"
	if req.IncludeSecrets {
		format = "encrypted"
	}
	respondJSON(w, r, http.StatusOK, map[string]string{
		"content": string(payload),
		"format":  format,
	})
}

type importRequest struct {
	Content    string `json:"content"`
	Passphrase string `json:"passphrase"`
}

// handleImport replaces the configuration with an exported bundle. A
// wrong passphrase is the client's mistake, so the decryption failure
// maps to 400 here instead of the usual 500.
func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.Content == "" {
		respondErrorCode(w, r, http.StatusBadRequest, codeBadRequest, "content is required")
		return
	}
	ctx := r.Context()
	if err := a.store.Import(ctx, []byte(req.Content), req.Passphrase); err != nil {
		if errors.Is(err, settings.ErrDecryption) {
			respondErrorCode(w, r, http.StatusBadRequest, codeDecryption, "bundle could not be decrypted; check the passphrase")
			return
		}
		respondError(w, r, err)
		return
	}
	cfg, err := a.store.Load(ctx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a.configView(r, cfg))
}
