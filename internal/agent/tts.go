package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const elevenLabsAPIURL = "https://api.elevenlabs.io/v1/text-to-speech"

type TTSClient interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

type elevenLabsClient struct {
	apiKey       string
	baseURL      string
	defaultVoice string
	httpClient   *http.Client
}

func NewElevenLabsClient(apiKey, defaultVoice string) TTSClient {
	return newElevenLabsClient(elevenLabsAPIURL, apiKey, defaultVoice)
}

func newElevenLabsClient(baseURL, apiKey, defaultVoice string) *elevenLabsClient {
	return &elevenLabsClient{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultVoice: defaultVoice,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

func (c *elevenLabsClient) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is not configured")
	}
	if voiceID == "" {
		voiceID = c.defaultVoice
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, voiceID)

	reqBody := ttsRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2", // local languages
	}
	reqBody.VoiceSettings.Stability = 0.5
	reqBody.VoiceSettings.SimilarityBoost = 0.75

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS API error: %s - %s", resp.Status, string(body))
	}

	return io.ReadAll(resp.Body)
}
