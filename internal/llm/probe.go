package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
)

// ErrUnauthorized indicates the provider rejected the credential.
var ErrUnauthorized = errors.New("llm: authentication rejected")

const (
	defaultProbeTimeout = 30 * time.Second

	probeRetryCount    = 2
	probeRetryWaitTime = 500 * time.Millisecond
)

// Target describes the endpoint a probe talks to. It is derived from a
// provider record plus its decrypted credential; the credential is passed
// separately and only for the duration of the call.
type Target struct {
	BaseURL        string
	AuthHeader     string
	AuthPrefix     string
	ModelsEndpoint string
	ModelsJSONPath string
	ExtraHeaders   map[string]string
	StaticModels   []string
}

// Probe verifies provider credentials and discovers model lists.
type Probe struct {
	client *resty.Client
}

// NewProbe creates a Probe with a bounded timeout. Zero applies the
// default.
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", build.UserAgent()).
		SetRetryCount(probeRetryCount).
		SetRetryWaitTime(probeRetryWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &Probe{client: client}
}

// ListModels fetches the model ids offered by the target. Targets
// without a discovery endpoint return their static list. Targets with
// both fall back to the static list when the endpoint is unreachable.
func (p *Probe) ListModels(ctx context.Context, target Target, apiKey string) ([]string, error) {
	if target.ModelsEndpoint == "" {
		return append([]string(nil), target.StaticModels...), nil
	}

	models, err := p.fetchModels(ctx, target, apiKey)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || len(target.StaticModels) == 0 {
			return nil, err
		}
		logger.Warn(ctx, "Model discovery failed, using static list", tag.Error(err))
		return append([]string(nil), target.StaticModels...), nil
	}
	return models, nil
}

// TestAuth verifies the credential against the target. For targets with
// a discovery endpoint this requires a successful model listing; targets
// without one are probed with a plain authenticated request to the base
// URL, where anything but an explicit auth rejection passes.
func (p *Probe) TestAuth(ctx context.Context, target Target, apiKey string) error {
	if target.ModelsEndpoint != "" {
		_, err := p.fetchModels(ctx, target, apiKey)
		return err
	}

	resp, err := p.request(ctx, target, apiKey).Get(strings.TrimRight(target.BaseURL, "/"))
	if err != nil {
		return fmt.Errorf("llm: auth check failed: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return ErrUnauthorized
	}
	return nil
}

func (p *Probe) fetchModels(ctx context.Context, target Target, apiKey string) ([]string, error) {
	url := strings.TrimRight(target.BaseURL, "/") + target.ModelsEndpoint

	resp, err := p.request(ctx, target, apiKey).Get(url)
	if err != nil {
		return nil, fmt.Errorf("llm: failed to fetch models: %w", err)
	}
	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return nil, ErrUnauthorized
	case resp.IsError():
		return nil, fmt.Errorf("llm: models endpoint returned status %d", resp.StatusCode())
	}

	models := extractModels(resp.Body(), target.ModelsJSONPath)
	if len(models) == 0 {
		return nil, fmt.Errorf("llm: no models found at path %q", target.ModelsJSONPath)
	}
	return models, nil
}

func (p *Probe) request(ctx context.Context, target Target, apiKey string) *resty.Request {
	req := p.client.R().SetContext(ctx)
	if target.AuthHeader != "" && apiKey != "" {
		req.SetHeader(target.AuthHeader, strings.TrimSpace(target.AuthPrefix+apiKey))
	}
	for name, value := range target.ExtraHeaders {
		req.SetHeader(name, value)
	}
	return req
}

// extractModels pulls model ids out of a JSON body using a bracket-style
// path such as "data[].id".
func extractModels(body []byte, path string) []string {
	result := gjson.GetBytes(body, translateJSONPath(path))

	var models []string
	for _, item := range result.Array() {
		if s := item.String(); s != "" {
			models = append(models, s)
		}
	}
	return models
}

// translateJSONPath converts the record syntax ("data[].id") into gjson
// syntax ("data.#.id").
func translateJSONPath(path string) string {
	if path == "" {
		return "@this"
	}
	path = strings.ReplaceAll(path, "[].", ".#.")
	path = strings.ReplaceAll(path, "[]", ".#")
	return path
}
