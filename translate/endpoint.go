package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// endpointClient calls the dedicated translation endpoint: one POST
// per source file carrying the content and all target languages.
type endpointClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newEndpointClient(cfg Config) (*endpointClient, error) {
	if cfg.BaseURL == "" {
		return nil, &ProviderError{Message: "endpoint provider requires a base URL"}
	}
	return &endpointClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout()),
	}, nil
}

// endpointRequest is the wire format of the translation endpoint.
type endpointRequest struct {
	Content              any      `json:"content"`
	SourceLanguage       string   `json:"sourceLanguage"`
	TargetLanguages      []string `json:"targetLanguages"`
	OutputFormat         string   `json:"outputFormat"`
	PreservePlaceholders bool     `json:"preservePlaceholders"`
}

// endpointResponse is the typed response envelope. The payload lives
// under "translations"; everything the service reports about itself
// sits in the optional "meta" object, so no field-name filtering is
// needed to separate payload from metadata.
type endpointResponse struct {
	Translations map[string]json.RawMessage `json:"translations"`
	Meta         *endpointMeta              `json:"meta,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

// endpointMeta is the known metadata envelope. It is accepted and
// dropped; the pipeline only consumes translations.
type endpointMeta struct {
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
	CharCount  int64  `json:"charCount,omitempty"`
}

func (c *endpointClient) Translate(ctx context.Context, req Request) (*Result, error) {
	wire := endpointRequest{
		SourceLanguage:       req.SourceLanguage,
		TargetLanguages:      req.TargetLanguages,
		OutputFormat:         string(req.Format),
		PreservePlaceholders: true,
	}
	if req.Tree != nil {
		wire.Content = req.Tree
	} else {
		wire.Content = req.Raw
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, &ProviderError{Message: "marshaling request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Message: "calling translation endpoint", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Message: "reading response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 500)),
		}
	}

	var envelope endpointResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ProviderError{Message: "invalid response JSON", Cause: err}
	}
	if envelope.Error != "" {
		return nil, &ProviderError{Message: envelope.Error}
	}

	return decodeTranslations(envelope.Translations, req)
}

// decodeTranslations converts the per-language raw payloads into trees
// or strings, matching the shape of the request, and checks that every
// requested language came back.
func decodeTranslations(raw map[string]json.RawMessage, req Request) (*Result, error) {
	result := &Result{
		Trees: make(map[string]map[string]any),
		Raw:   make(map[string]string),
	}

	for _, lang := range req.TargetLanguages {
		payload, ok := raw[lang]
		if !ok {
			return nil, &CountMismatchError{
				What:     "language",
				Expected: len(req.TargetLanguages),
				Got:      len(raw),
			}
		}

		if req.Tree != nil {
			var tree map[string]any
			if err := json.Unmarshal(payload, &tree); err != nil {
				return nil, &ProviderError{
					Message: fmt.Sprintf("language %s: expected a tree", lang),
					Cause:   err,
				}
			}
			result.Trees[lang] = tree
			continue
		}

		var text string
		if err := json.Unmarshal(payload, &text); err != nil {
			return nil, &ProviderError{
				Message: fmt.Sprintf("language %s: expected a string", lang),
				Cause:   err,
			}
		}
		result.Raw[lang] = text
	}

	return result, nil
}

var _ Service = (*endpointClient)(nil)
