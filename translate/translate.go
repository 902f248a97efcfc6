// Package translate talks to the remote translation service. Two
// implementations exist: the dedicated translation endpoint (a JSON
// API accepting a whole tree and a list of target languages) and an
// OpenAI-compatible chat model prompted per language.
package translate

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/locsync/locsync/localefile"
)

// Provider IDs.
const (
	ProviderEndpoint = "endpoint"
	ProviderOpenAI   = "openai"
)

// Request is one translation call: the content of one source file and
// every target language, batched together.
type Request struct {
	// Tree is the content to translate when the file is
	// tree-decomposable; nil otherwise.
	Tree map[string]any
	// Raw is the opaque content for non-tree YAML files.
	Raw string
	// SourceLanguage is the language the content is written in.
	SourceLanguage string
	// TargetLanguages are the languages to translate into.
	TargetLanguages []string
	// Format of the source file, forwarded so the service can shape
	// its output ("json" or "yaml").
	Format localefile.Format
}

// Result maps each target language to its translated content. Exactly
// one of Trees/Raw carries a language's result, mirroring the request.
type Result struct {
	Trees map[string]map[string]any
	Raw   map[string]string
}

// Service is the remote translation collaborator. One call per source
// file; a failed call is fatal for the whole run.
type Service interface {
	Translate(ctx context.Context, req Request) (*Result, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	// Provider is "endpoint" or "openai".
	Provider string
	// BaseURL is the service URL (required for endpoint).
	BaseURL string
	// APIKey authenticates the call.
	APIKey string
	// Model is the model identifier (openai only).
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
}

func (c Config) effectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 120 * time.Second
}

// New builds the Service selected by the config.
func New(cfg Config) (Service, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderEndpoint, "":
		return newEndpointClient(cfg)
	default:
		return nil, &ProviderError{Message: "unknown provider " + cfg.Provider}
	}
}

// makeHTTPClient builds an HTTP client honoring an explicit proxy or,
// failing that, the HTTP_PROXY/HTTPS_PROXY environment.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
