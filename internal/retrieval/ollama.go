package retrieval

import (
	"context"
	"fmt"
	"strings"

	"chunk_visualizer/internal/logger"

	"github.com/go-resty/resty/v2"
)

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// EnsureOllamaModel checks that Ollama answers at baseURL and pulls model
// when it is not available yet.
func EnsureOllamaModel(ctx context.Context, baseURL, model string, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	rc := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/"))

	var tags ollamaTags
	resp, err := rc.R().SetContext(ctx).SetResult(&tags).Get("/api/tags")
	if err != nil || resp.IsError() {
		return fmt.Errorf("ollama is not running or not reachable at %s", baseURL)
	}

	for _, m := range tags.Models {
		if m.Name == model || strings.TrimSuffix(m.Name, ":latest") == model {
			log.Debug("embedding model available", "model", model)
			return nil
		}
	}

	log.Info("pulling embedding model", "model", model)
	resp, err = rc.R().
		SetContext(ctx).
		SetBody(ollamaPullRequest{Name: model, Stream: false}).
		Post("/api/pull")
	if err != nil {
		return fmt.Errorf("failed to pull model %s: %w", model, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to pull model %s: status %d", model, resp.StatusCode())
	}
	log.Info("embedding model pulled", "model", model)
	return nil
}
