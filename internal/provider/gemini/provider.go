package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"paratext/internal/config"
	"paratext/internal/models"
	"paratext/internal/provider"
)

// Provider generates text through the Gemini API.
type Provider struct {
	name   string
	client *genai.Client
	models []models.Model
}

// New builds the genai client once; it is safe for concurrent use.
func New(ctx context.Context, name string, cfg config.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("api key must not be empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL := strings.TrimRight(cfg.BaseURL, "/"); baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL + "/"
	}
	if len(cfg.Headers) > 0 {
		clientCfg.HTTPOptions.Headers = make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			clientCfg.HTTPOptions.Headers.Set(k, v)
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, model := range cfg.Models {
		if model.APIStyle != config.APIStyleGemini {
			return nil, fmt.Errorf("gemini provider %q received model %q with unsupported api_style %q", name, model.ID, model.APIStyle)
		}
		modelsList = append(modelsList, models.Model{ID: model.ID, Provider: name, APIStyle: model.APIStyle})
	}

	return &Provider{name: name, client: client, models: modelsList}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("input must not be empty")
	}

	resp, err := p.client.Models.GenerateContent(
		ctx,
		req.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt()}}}},
		buildConfig(req.Params),
	)
	if err != nil {
		return nil, p.classify(ctx, err)
	}

	out := &models.GenerationResponse{
		ID:   resp.ResponseID,
		Text: strings.TrimSpace(resp.Text()),
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = models.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

func buildConfig(params models.GenerationParameters) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: models.RewriteInstruction}}},
		CandidateCount:    1,
	}
	if v := params.MaxTokens(); v > 0 {
		cfg.MaxOutputTokens = int32(v)
	}
	if params.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(params.Temperature))
	}
	if params.NoRepeatNgramSize > 0 {
		cfg.FrequencyPenalty = genai.Ptr(float32(1.0 / float64(params.NoRepeatNgramSize)))
	}
	return cfg
}

// classify maps genai errors onto the provider error classes.
func (p *Provider) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s request: %w", p.name, ctxErr)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.APIError{Provider: p.name, Status: apiErr.Code, Type: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &provider.APIError{Provider: p.name, Status: apiErrPtr.Code, Type: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return provider.TransportError(ctx, p.name, err)
}
