package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mindful-auto/maa-core/pkg/core"
)

// VideoRequest describes a Veo long-running generation call.
type VideoRequest struct {
	Model       string
	Prompt      string
	AspectRatio string // e.g. "16:9"
	Resolution  string // e.g. "1080p"
	Count       int    // number of videos, minimum 1
}

// VideoOperation is the server-side state of a Veo generation job.
type VideoOperation struct {
	// Name identifies the operation for polling.
	Name string
	// Done reports whether the job has finished, successfully or not.
	Done bool
	// URI is the download location of the first generated video. Set only
	// once Done is true and the job succeeded.
	URI string
}

// predictRequest is the predictLongRunning request body.
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters *videoParameters  `json:"parameters,omitempty"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type videoParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	Resolution       string `json:"resolution,omitempty"`
	SampleCount      int    `json:"sampleCount,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

// operationResponse is the long-running operation resource.
type operationResponse struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *operationError  `json:"error,omitempty"`
	Response *operationResult `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type operationResult struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples,omitempty"`
}

type generatedSample struct {
	Video *videoRef `json:"video,omitempty"`
}

type videoRef struct {
	URI string `json:"uri"`
}

// StartVideoGeneration submits a Veo job and returns the pending operation.
func (c *Client) StartVideoGeneration(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, fmt.Errorf("model must not be empty")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, core.NewInvalidRequestError("video prompt must not be empty")
	}
	count := req.Count
	if count < 1 {
		count = 1
	}

	body := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: &videoParameters{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
			SampleCount: count,
		},
	}

	c.logger.Debug("veo generate", "model", model)

	respBody, err := c.doRequest(ctx, "/models/"+model+":predictLongRunning", body)
	if err != nil {
		return nil, err
	}

	var op operationResponse
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	if op.Name == "" {
		return nil, core.NewAPIError("veo returned an operation without a name")
	}
	return toVideoOperation(&op)
}

// GetVideoOperation polls a pending Veo operation by name.
func (c *Client) GetVideoOperation(ctx context.Context, name string) (*VideoOperation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("operation name must not be empty")
	}

	respBody, err := c.doGet(ctx, "/"+name)
	if err != nil {
		return nil, err
	}

	var op operationResponse
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	return toVideoOperation(&op)
}

// DownloadVideo fetches the bytes of a finished video. The file endpoint
// wants the API key as a query parameter rather than a header.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("video uri must not be empty")
	}

	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("video download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

// toVideoOperation reduces the operation resource to what callers need,
// surfacing a finished-with-error operation as an error.
func toVideoOperation(op *operationResponse) (*VideoOperation, error) {
	if op.Done && op.Error != nil {
		return nil, &core.Error{
			Type:    core.ErrAPI,
			Message: op.Error.Message,
			Code:    op.Error.Status,
		}
	}

	out := &VideoOperation{Name: op.Name, Done: op.Done}
	if op.Done && op.Response != nil && op.Response.GenerateVideoResponse != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) == 0 || samples[0].Video == nil || samples[0].Video.URI == "" {
			return nil, core.NewAPIError("veo finished without a generated video")
		}
		out.URI = samples[0].Video.URI
	}
	return out, nil
}
