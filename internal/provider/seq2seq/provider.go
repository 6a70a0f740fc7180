// Package seq2seq talks to a self-hosted sequence-to-sequence model server
// exposing a Hugging Face pipeline style JSON API:
//
//	POST /generate  {"model", "inputs", "parameters": {...}} -> [{"generated_text": "..."}]
//	GET  /info      -> {"device": "cpu" | "cuda", "model": "..."}
//
// Unlike the chat providers it accepts the full beam search parameter set.
package seq2seq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"paratext/internal/config"
	"paratext/internal/models"
	"paratext/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "paratext/0.1"
)

// Provider implements provider.Provider and provider.DeviceReporter.
type Provider struct {
	name        string
	apiKey      string
	headers     map[string]string
	client      *http.Client
	models      []models.Model
	generateURL string
	infoURL     string
}

// New creates a seq2seq provider.
func New(name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, model := range cfg.Models {
		if model.APIStyle != config.APIStyleSeq2Seq {
			return nil, fmt.Errorf("seq2seq provider %q received model %q with unsupported api_style %q", name, model.ID, model.APIStyle)
		}
		modelsList = append(modelsList, models.Model{ID: model.ID, Provider: name, APIStyle: model.APIStyle})
	}

	return &Provider{
		name:        name,
		apiKey:      cfg.APIKey,
		headers:     cfg.Headers,
		client:      client,
		models:      modelsList,
		generateURL: baseURL + "/generate",
		infoURL:     baseURL + "/info",
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

type generatePayload struct {
	Model      string     `json:"model"`
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	NumBeams          int     `json:"num_beams,omitempty"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size,omitempty"`
	Temperature       float64 `json:"temperature,omitempty"`
	LengthPenalty     float64 `json:"length_penalty,omitempty"`
	MinLength         int     `json:"min_length,omitempty"`
	MaxLength         int     `json:"max_length,omitempty"`
	DoSample          bool    `json:"do_sample"`
	EarlyStopping     bool    `json:"early_stopping"`
}

type generatedItem struct {
	GeneratedText string `json:"generated_text"`
}

func buildPayload(req models.GenerationRequest) generatePayload {
	params := req.Params
	return generatePayload{
		Model:  req.Model,
		Inputs: req.Prompt(),
		Parameters: parameters{
			NumBeams:          params.NumBeams,
			NoRepeatNgramSize: params.NoRepeatNgramSize,
			Temperature:       params.Temperature,
			LengthPenalty:     params.LengthPenalty,
			MinLength:         params.MinLength,
			MaxLength:         params.MaxLength,
			// Temperature only matters when sampling, which greedy single-beam runs need.
			DoSample:      params.NumBeams <= 1 && params.Temperature > 0,
			EarlyStopping: params.NumBeams > 1,
		},
	}
}

func (p *Provider) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("input must not be empty")
	}

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := p.newRequest(ctx, http.MethodPost, p.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	raw, err := p.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	text, err := decodeGenerated(raw)
	if err != nil {
		return nil, err
	}
	return &models.GenerationResponse{Text: text, FinishReason: "stop"}, nil
}

// Device reports where the model server runs the model.
func (p *Provider) Device(ctx context.Context) (string, error) {
	httpReq, err := p.newRequest(ctx, http.MethodGet, p.infoURL, nil)
	if err != nil {
		return "", err
	}

	raw, err := p.do(ctx, httpReq)
	if err != nil {
		return "", err
	}

	var info struct {
		Device string `json:"device"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return "", fmt.Errorf("decode info response: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(info.Device)), nil
}

func (p *Provider) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (p *Provider) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, provider.TransportError(ctx, p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", p.name, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &provider.APIError{Provider: p.name, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var parsed struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
			apiErr.Message = parsed.Error
		}
		return nil, apiErr
	}
	return body, nil
}

// decodeGenerated accepts both the list form returned by pipelines and a
// bare object.
func decodeGenerated(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []generatedItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", fmt.Errorf("decode provider response: %w", err)
		}
		if len(items) == 0 {
			return "", nil
		}
		return items[0].GeneratedText, nil
	}

	var item generatedItem
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	return item.GeneratedText, nil
}
