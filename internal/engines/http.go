package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"verity/internal/analysis"
)

// httpClient is shared by all adapters; per-call deadlines come from the
// caller's context.
var httpClient = &http.Client{Timeout: 2 * time.Minute}

// HTTPOCR is an adapter for an OCR service speaking the verity engine
// protocol: POST /v1/ocr with a content reference, JSON text back.
type HTTPOCR struct {
	id      string
	baseURL string
}

// NewHTTPOCR builds an OCR adapter.
func NewHTTPOCR(id, baseURL string) *HTTPOCR {
	return &HTTPOCR{id: id, baseURL: strings.TrimRight(baseURL, "/")}
}

// ID implements OCREngine.
func (e *HTTPOCR) ID() string { return e.id }

// RecognizeText implements OCREngine.
func (e *HTTPOCR) RecognizeText(ctx context.Context, contentRef string) (string, error) {
	var response struct {
		Text string `json:"text"`
	}
	err := postJSON(ctx, e.id, e.baseURL+"/v1/ocr", map[string]any{
		"contentRef": contentRef,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.Text, nil
}

// HTTPTranscriber is an adapter for a speech-to-text service: POST
// /v1/transcribe with a content reference and segment bounds.
type HTTPTranscriber struct {
	id      string
	baseURL string
}

// NewHTTPTranscriber builds a transcriber adapter.
func NewHTTPTranscriber(id, baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{id: id, baseURL: strings.TrimRight(baseURL, "/")}
}

// ID implements Transcriber.
func (e *HTTPTranscriber) ID() string { return e.id }

// TranscribeSegment implements Transcriber.
func (e *HTTPTranscriber) TranscribeSegment(ctx context.Context, contentRef string, offsetSeconds, durationSeconds float64) (string, error) {
	var response struct {
		Text string `json:"text"`
	}
	err := postJSON(ctx, e.id, e.baseURL+"/v1/transcribe", map[string]any{
		"contentRef":      contentRef,
		"offsetSeconds":   offsetSeconds,
		"durationSeconds": durationSeconds,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.Text, nil
}

// HTTPPIIDetector is an adapter for an entity detection service: POST
// /v1/detect with raw text, entity list back.
type HTTPPIIDetector struct {
	id      string
	baseURL string
}

// NewHTTPPIIDetector builds a PII detector adapter.
func NewHTTPPIIDetector(id, baseURL string) *HTTPPIIDetector {
	return &HTTPPIIDetector{id: id, baseURL: strings.TrimRight(baseURL, "/")}
}

// ID implements PIIDetector.
func (e *HTTPPIIDetector) ID() string { return e.id }

// DetectEntities implements PIIDetector.
func (e *HTTPPIIDetector) DetectEntities(ctx context.Context, text string) ([]analysis.PIIEntity, error) {
	var response struct {
		Entities []struct {
			Type  string `json:"type"`
			Start int    `json:"start"`
			End   int    `json:"end"`
			Text  string `json:"text"`
		} `json:"entities"`
	}
	err := postJSON(ctx, e.id, e.baseURL+"/v1/detect", map[string]any{
		"text": text,
	}, &response)
	if err != nil {
		return nil, err
	}
	entities := make([]analysis.PIIEntity, 0, len(response.Entities))
	for _, entity := range response.Entities {
		entities = append(entities, analysis.PIIEntity{
			Type:  entity.Type,
			Start: entity.Start,
			End:   entity.End,
			Text:  entity.Text,
		})
	}
	return entities, nil
}

// postJSON sends a request and decodes the response, mapping transport
// failures and server errors onto the engine error taxonomy.
func postJSON(ctx context.Context, engineID, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", engineID, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", engineID, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := httpClient.Do(request)
	if err != nil {
		var netErr net.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%s: %w", engineID, ErrTimeout)
		case errors.As(err, &netErr) && netErr.Timeout():
			return fmt.Errorf("%s: %w", engineID, ErrTimeout)
		default:
			return fmt.Errorf("%s: %w: %v", engineID, ErrUnavailable, err)
		}
	}
	defer response.Body.Close()

	if response.StatusCode >= 500 {
		return fmt.Errorf("%s: %w: status %d", engineID, ErrUnavailable, response.StatusCode)
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", engineID, response.StatusCode)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", engineID, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", engineID, err)
	}
	return nil
}
