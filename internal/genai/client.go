// Package genai is a minimal client for the Gemini generateContent REST API.
// Both calls the application makes (gift recommendations, business-card
// extraction) request strictly-typed JSON back via a response schema and are
// atomic from the caller's point of view: valid schema or a single error.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
)

// Client errors. Callers treat every variant as one opaque, retryable failure;
// the distinction only matters for logs and tests.
var (
	ErrAPIKeyMissing = errors.New(config.ErrAPIKeyMissing)
	ErrRequest       = errors.New(config.ErrGenAIRequest)
	ErrStatus        = errors.New(config.ErrGenAIStatus)
	ErrEmpty         = errors.New(config.ErrGenAIEmpty)
	ErrSchema        = errors.New(config.ErrGenAISchema)
)

// Config carries the client settings.
type Config struct {
	APIKey  string
	Model   string        // Defaults to config.DefaultGenAIModel.
	BaseURL string        // Defaults to config.DefaultGenAIBaseURL.
	Timeout time.Duration // Defaults to config.GenAITimeout.
}

// Client talks to the generateContent endpoint over plain HTTP.
type Client struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client. An empty API key is permitted at
// construction time; calls will fail with ErrAPIKeyMissing so the rest of the
// application keeps working without AI features.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = config.DefaultGenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultGenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.GenAITimeout
	}
	return &Client{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// part is one element of a content turn: either text or inline binary data.
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string   `json:"responseMimeType"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate performs one structured-output round trip and returns the raw JSON
// text of the first candidate.
func (c *Client) generate(ctx context.Context, parts []part, schema *Schema, temperature *float64) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompGenAI,
		config.LogKeyModel, c.model,
	)

	reqBody := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: config.MimeJSON,
			ResponseSchema:   schema,
			Temperature:      temperature,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	endpoint := fmt.Sprintf(config.GenAIPathFormat, c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	httpReq.Header.Set(config.HeaderContentType, config.MimeJSON)
	httpReq.Header.Set(config.HeaderUserAgent, config.UserAgent)
	// The key travels in a header, never in the URL, so it cannot leak via logs.
	httpReq.Header.Set(config.GenAIKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxGenAIRespSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn(config.ErrGenAIStatus,
			config.LogKeyStatus, resp.StatusCode,
		)
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrGenAIDecode, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmpty
	}

	log.Debug(config.MsgGenSuccess,
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return []byte(decoded.Candidates[0].Content.Parts[0].Text), nil
}

// decodeStructured parses model output into v, repairing near-JSON once
// before giving up. Structured-output models occasionally emit trailing
// commas or fence markers; jsonrepair recovers those cases.
func decodeStructured(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	slog.Debug(config.MsgGenAIRepairUsed, config.LogKeyComponent, config.CompGenAI)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

// RecommendGifts submits the prepared prompt and returns the suggested gifts.
// A response that is not a JSON array of the requested shape is one opaque
// error; no partial result is ever returned.
func (c *Client) RecommendGifts(ctx context.Context, prompt string) ([]engine.GiftRecommendation, error) {
	temp := config.GenAITemperature
	raw, err := c.generate(ctx, []part{{Text: prompt}}, recommendationSchema, &temp)
	if err != nil {
		return nil, err
	}

	var recs []engine.GiftRecommendation
	if err := decodeStructured(bytes.TrimSpace(raw), &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		return nil, fmt.Errorf("%w: not an array", ErrSchema)
	}
	return recs, nil
}

// CardFields is the partial contact extracted from a business-card image.
// Fields the model could not infer are empty.
type CardFields struct {
	Name        string   `json:"name"`
	Affiliation string   `json:"affiliation"`
	Interests   []string `json:"interests"`
}

// ExtractCard submits a still image of a business card and returns the fields
// the model could read off it.
func (c *Client) ExtractCard(ctx context.Context, image []byte) (CardFields, error) {
	if len(image) == 0 {
		return CardFields{}, fmt.Errorf("%w: %s", ErrRequest, config.ErrImageEmpty)
	}
	if len(image) > config.MaxImageBytes {
		return CardFields{}, fmt.Errorf("%w: %s", ErrRequest, config.ErrImageTooLarge)
	}

	parts := []part{
		{InlineData: &inlineData{
			MimeType: config.MimeJPEG,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
		{Text: extractionPrompt},
	}

	raw, err := c.generate(ctx, parts, extractionSchema, nil)
	if err != nil {
		return CardFields{}, err
	}

	var fields CardFields
	if err := decodeStructured(bytes.TrimSpace(raw), &fields); err != nil {
		return CardFields{}, err
	}
	return fields, nil
}

// extractionPrompt asks for the card fields in Korean, mirroring the
// product's primary locale. Keys absent from the card are omitted.
const extractionPrompt = `제공된 명함 이미지를 분석해주세요.
여기서 이름, 소속(회사 또는 단체), 그리고 직책이나 산업 분야를 기반으로 추론한 관심사를 추출하여 JSON 객체로 반환해주세요.
모든 텍스트는 한국어로 작성해야 합니다.
정보를 찾을 수 없는 경우, 해당 키는 JSON 객체에서 생략해주세요.`
