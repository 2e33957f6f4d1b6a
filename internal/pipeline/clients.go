package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxforge/voxcraft/internal/llm"
)

// ImageGenerator produces an image from an enhanced text prompt. The remote
// service is opaque; callers only see the decoded image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ModelGenerator converts a base64-encoded image into a 3D model with an
// optional preview video.
type ModelGenerator interface {
	GenerateModel(ctx context.Context, imageB64 string) (*Model3D, error)
}

// Model3D is the output of the image-to-3D service. PreviewVideo may be
// empty; a missing preview is a warning, not an error.
type Model3D struct {
	Object       []byte
	PreviewVideo []byte
}

// HTTPImageClient calls a remote text-to-image execution endpoint.
// Failures are classified as ErrUpstream so the turn policy can distinguish
// them from validation problems.
type HTTPImageClient struct {
	endpoint string
	client   *http.Client
	breaker  *llm.CircuitBreaker
}

// Ensure clients implement their interfaces at compile time.
var (
	_ ImageGenerator = (*HTTPImageClient)(nil)
	_ ModelGenerator = (*HTTPModelClient)(nil)
)

// NewHTTPImageClient creates an image client for the given endpoint. A zero
// timeout defaults to 120 seconds; generation calls are slow.
func NewHTTPImageClient(endpoint string, timeout time.Duration) *HTTPImageClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPImageClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker:  llm.NewCircuitBreaker("text-to-image"),
	}
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type imageResponse struct {
	// Result is the generated image, base64-encoded.
	Result string `json:"result"`
}

// GenerateImage sends the enhanced prompt to the text-to-image service and
// returns the decoded image bytes.
func (c *HTTPImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		var resp imageResponse
		if err := postJSON(ctx, c.client, c.endpoint, imageRequest{Prompt: prompt}, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: text-to-image: %v", ErrUpstream, err)
	}

	resp := result.(imageResponse)
	if resp.Result == "" {
		return nil, fmt.Errorf("%w: no image was generated", ErrEmptyResult)
	}

	img, err := base64.StdEncoding.DecodeString(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: image payload is not valid base64: %v", ErrEmptyResult, err)
	}
	return img, nil
}

// HTTPModelClient calls a remote image-to-3D execution endpoint.
type HTTPModelClient struct {
	endpoint string
	client   *http.Client
	breaker  *llm.CircuitBreaker
}

// NewHTTPModelClient creates a 3D-model client for the given endpoint. A
// zero timeout defaults to 300 seconds; 3D conversion is the slowest stage.
func NewHTTPModelClient(endpoint string, timeout time.Duration) *HTTPModelClient {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &HTTPModelClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker:  llm.NewCircuitBreaker("image-to-3d"),
	}
}

type modelRequest struct {
	InputImage string `json:"input_image"`
}

type modelResponse struct {
	// GeneratedObject is the 3D model (GLB), base64-encoded.
	GeneratedObject string `json:"generated_object"`

	// VideoObject is an optional preview video (MP4), base64-encoded.
	VideoObject string `json:"video_object"`
}

// GenerateModel sends the base64 image to the image-to-3D service.
func (c *HTTPModelClient) GenerateModel(ctx context.Context, imageB64 string) (*Model3D, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		var resp modelResponse
		if err := postJSON(ctx, c.client, c.endpoint, modelRequest{InputImage: imageB64}, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: image-to-3d: %v", ErrUpstream, err)
	}

	resp := result.(modelResponse)
	if resp.GeneratedObject == "" {
		return nil, fmt.Errorf("%w: no 3D model was generated", ErrEmptyResult)
	}

	object, err := base64.StdEncoding.DecodeString(resp.GeneratedObject)
	if err != nil {
		return nil, fmt.Errorf("%w: model payload is not valid base64: %v", ErrEmptyResult, err)
	}

	out := &Model3D{Object: object}
	if resp.VideoObject != "" {
		// A corrupt preview is dropped, not fatal.
		if video, err := base64.StdEncoding.DecodeString(resp.VideoObject); err == nil {
			out.PreviewVideo = video
		}
	}
	return out, nil
}

// postJSON posts a JSON body and decodes a JSON response, treating any
// transport failure or non-OK status as an error for the caller to classify.
func postJSON(ctx context.Context, client *http.Client, endpoint string, in, out interface{}) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
