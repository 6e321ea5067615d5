// Package gemini is a thin client for the Google generative language API:
// image generation, chat completion and long-running video generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	imageModel = "gemini-2.5-flash-image"
	chatModel  = "gemini-3-pro-preview"
	videoModel = "veo-3.1-generate-preview"
)

var (
	ErrNoImage  = errors.New("no image returned")
	ErrNoVideo  = errors.New("no video returned")
	ErrTimedOut = errors.New("generation timed out")
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewClient(baseURL, apiKey string, pollInterval, pollTimeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateImage runs the image model with image-only output and returns the
// first inline image payload. At most one input image is passed through.
func (c *Client) GenerateImage(ctx context.Context, prompt string, inputImage []byte, mimeType string) ([]byte, error) {
	parts := []part{{Text: prompt}}
	if len(inputImage) > 0 {
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(inputImage),
		}})
	}

	reqBody := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	var result generateContentResponse
	if err := c.post(ctx, "/models/"+imageModel+":generateContent", reqBody, &result); err != nil {
		return nil, err
	}

	for _, cand := range result.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image payload: %w", err)
				}
				return data, nil
			}
		}
	}

	return nil, ErrNoImage
}

// Turn is one chat history entry.
type Turn struct {
	Role string
	Text string
}

// Chat runs the chat model over the given history with a system instruction.
func (c *Client) Chat(ctx context.Context, history []Turn, systemInstruction string) (string, error) {
	contents := make([]content, len(history))
	for i, t := range history {
		contents[i] = content{Role: t.Role, Parts: []part{{Text: t.Text}}}
	}

	reqBody := generateContentRequest{Contents: contents}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}

	var result generateContentResponse
	if err := c.post(ctx, "/models/"+chatModel+":generateContent", reqBody, &result); err != nil {
		return "", err
	}

	for _, cand := range result.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}

	return "", nil
}

// VideoRequest describes one video generation. StartImage is optional; when
// present the request animates the supplied frame.
type VideoRequest struct {
	Prompt         string
	AspectRatio    string
	StartImage     []byte
	StartImageMime string
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *inlineData `json:"image,omitempty"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	SampleCount int    `json:"sampleCount"`
}

type predictLongRunningRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type operation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// GenerateVideo submits a video generation, polls the long-running operation
// until it completes and downloads the result. The poll loop is bounded: past
// the configured ceiling it gives up with ErrTimedOut so the caller can
// refund the charge instead of blocking forever.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) ([]byte, error) {
	instance := videoInstance{Prompt: req.Prompt}
	if len(req.StartImage) > 0 {
		mime := req.StartImageMime
		if mime == "" {
			mime = "image/jpeg"
		}
		instance.Image = &inlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.StartImage),
		}
	}

	reqBody := predictLongRunningRequest{
		Instances:  []videoInstance{instance},
		Parameters: videoParameters{AspectRatio: req.AspectRatio, SampleCount: 1},
	}

	var op operation
	if err := c.post(ctx, "/models/"+videoModel+":predictLongRunning", reqBody, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("operation name is empty in response")
	}

	op2, err := c.waitForOperation(ctx, op.Name)
	if err != nil {
		return nil, err
	}

	samples := op2.Response
	if samples == nil || len(samples.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, ErrNoVideo
	}

	uri := samples.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return nil, ErrNoVideo
	}

	return c.download(ctx, uri)
}

func (c *Client) waitForOperation(ctx context.Context, name string) (*operation, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for {
		var op operation
		if err := c.get(ctx, "/"+strings.TrimPrefix(name, "/"), &op); err != nil {
			return nil, err
		}
		if op.Done {
			if op.Error != nil {
				return nil, fmt.Errorf("video generation failed: %s", op.Error.Message)
			}
			return &op, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrTimedOut
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to download video: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, result any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return nil
}
