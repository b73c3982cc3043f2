// Package keyphrase extracts key phrases from character descriptions via
// the Azure Language service and persists them per character.
package keyphrase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrExtractionFailed indicates the language service rejected the request
// or could not be reached.
var ErrExtractionFailed = errors.New("keyphrase.extraction_failed")

const keyPhrasesPath = "/text/analytics/v3.1/keyPhrases"

// ClientConfig configures the Azure Language client.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	// Language is the default document language; requests may override it.
	Language string
}

// Client calls the key-phrase extraction endpoint. Construction validates
// the configuration so a misconfigured deployment fails at startup, not on
// the first extraction.
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	httpClient *http.Client
}

// NewClient validates the configuration and returns a ready client.
func NewClient(config ClientConfig, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(config.Endpoint) == "" {
		return nil, fmt.Errorf("keyphrase.config: endpoint must be provided")
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("keyphrase.config: api key must be provided")
	}
	language := config.Language
	if language == "" {
		language = "en"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		language:   language,
		httpClient: httpClient,
	}, nil
}

type extractionDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type extractionRequest struct {
	Documents []extractionDocument `json:"documents"`
}

type extractionResponse struct {
	Documents []struct {
		ID         string   `json:"id"`
		KeyPhrases []string `json:"keyPhrases"`
	} `json:"documents"`
	Errors []struct {
		ID    string `json:"id"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"errors"`
}

// ExtractKeyPhrases submits one document and returns its phrases. Any
// service-side or transport failure maps to ErrExtractionFailed.
func (client *Client) ExtractKeyPhrases(ctx context.Context, text string, language string) ([]string, error) {
	if language == "" {
		language = client.language
	}
	payload, encodeErr := json.Marshal(extractionRequest{
		Documents: []extractionDocument{{ID: "1", Language: language, Text: text}},
	})
	if encodeErr != nil {
		return nil, fmt.Errorf("keyphrase.extract: %w", encodeErr)
	}

	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint+keyPhrasesPath, bytes.NewReader(payload))
	if requestErr != nil {
		return nil, fmt.Errorf("keyphrase.extract: %w", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Ocp-Apim-Subscription-Key", client.apiKey)

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return nil, fmt.Errorf("keyphrase.extract: %w", ErrExtractionFailed)
	}
	defer func() { _ = response.Body.Close() }()
	body, readErr := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if readErr != nil {
		return nil, fmt.Errorf("keyphrase.extract: %w", ErrExtractionFailed)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("keyphrase.extract status %d: %w", response.StatusCode, ErrExtractionFailed)
	}

	var decoded extractionResponse
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		return nil, fmt.Errorf("keyphrase.extract: %w", ErrExtractionFailed)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("keyphrase.extract %s: %w", decoded.Errors[0].Error.Code, ErrExtractionFailed)
	}
	if len(decoded.Documents) == 0 {
		return nil, fmt.Errorf("keyphrase.extract empty response: %w", ErrExtractionFailed)
	}
	return decoded.Documents[0].KeyPhrases, nil
}
