package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/locsync/locsync/flatpath"
	"github.com/locsync/locsync/langmeta"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openaiClient prompts an OpenAI-compatible chat model, one completion
// per target language. The content travels as a flat path-to-text JSON
// object so the model cannot restructure the tree.
type openaiClient struct {
	client *openai.Client
	model  string
}

func newOpenAIClient(cfg Config) (*openaiClient, error) {
	if cfg.APIKey == "" {
		return nil, &ProviderError{Message: "openai provider requires an API key"}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout())

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openaiClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (c *openaiClient) Translate(ctx context.Context, req Request) (*Result, error) {
	result := &Result{
		Trees: make(map[string]map[string]any),
		Raw:   make(map[string]string),
	}

	var flat map[string]any
	if req.Tree != nil {
		var err error
		flat, err = flatpath.Flatten(req.Tree)
		if err != nil {
			return nil, err
		}
	}

	for _, lang := range req.TargetLanguages {
		if req.Tree != nil {
			tree, err := c.translateTree(ctx, flat, req.SourceLanguage, lang)
			if err != nil {
				return nil, err
			}
			result.Trees[lang] = tree
			continue
		}

		text, err := c.translateRaw(ctx, req.Raw, req.SourceLanguage, lang)
		if err != nil {
			return nil, err
		}
		result.Raw[lang] = text
	}

	return result, nil
}

// translateTree sends the flat map as a JSON object and expects the
// same keys back with translated values.
func (c *openaiClient) translateTree(ctx context.Context, flat map[string]any, sourceLang, targetLang string) (map[string]any, error) {
	payload, err := json.Marshal(flat)
	if err != nil {
		return nil, &ProviderError{Message: "marshaling content", Cause: err}
	}

	content, err := c.complete(ctx, treeSystemPrompt(sourceLang, targetLang), string(payload), true)
	if err != nil {
		return nil, err
	}

	var translated map[string]any
	if err := json.Unmarshal([]byte(content), &translated); err != nil {
		return nil, &ProviderError{
			Message: fmt.Sprintf("language %s: model returned invalid JSON", targetLang),
			Cause:   err,
		}
	}

	if err := sameKeySet(flat, translated); err != nil {
		return nil, err
	}

	return flatpath.Unflatten(translated), nil
}

func (c *openaiClient) translateRaw(ctx context.Context, raw, sourceLang, targetLang string) (string, error) {
	return c.complete(ctx, rawSystemPrompt(sourceLang, targetLang), raw, false)
}

func (c *openaiClient) complete(ctx context.Context, systemPrompt, userMessage string, jsonOutput bool) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: 0.3,
	}
	if jsonOutput {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", &ProviderError{Message: "chat completion failed", Cause: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Message: "empty completion response"}
	}

	return resp.Choices[0].Message.Content, nil
}

func treeSystemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a professional software localization translator.
Translate the values of the JSON object from %s to %s.

Rules:
- Return ONLY a JSON object with exactly the same keys; translate the values.
- Do not translate the keys.
- Keep placeholders like {{name}}, {count}, %%s, %%d, %%1$s exactly as they appear.
- Do not add, remove, or reorder keys.
- Do not wrap the output in Markdown code fences.`, langmeta.Name(sourceLang), langmeta.Name(targetLang))
}

func rawSystemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a professional software localization translator.
Translate the document from %s to %s.

Rules:
- Preserve the document structure and formatting exactly.
- Keep placeholders like {{name}}, {count}, %%s, %%d, %%1$s exactly as they appear.
- Return only the translated document, nothing else.`, langmeta.Name(sourceLang), langmeta.Name(targetLang))
}

// sameKeySet rejects responses whose key set differs from the request.
func sameKeySet(want, got map[string]any) error {
	if len(want) != len(got) {
		return &CountMismatchError{What: "key", Expected: len(want), Got: len(got)}
	}
	missing := make([]string, 0)
	for key := range want {
		if _, ok := got[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ProviderError{
			Message: fmt.Sprintf("model dropped keys: %v", missing),
		}
	}
	return nil
}

var _ Service = (*openaiClient)(nil)
