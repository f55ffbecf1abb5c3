package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"logobatch/internal/domain"
	"logobatch/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("leonardo: api key is required")

const (
	// DefaultBaseURL is the public REST endpoint of the service.
	DefaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"
	// DefaultModelID selects Leonardo Lightning XL.
	DefaultModelID = "b24e16ff-06e3-43eb-8d33-4416c2d75876"

	initStrength       = 0.5
	imageWidth         = 512
	imageHeight        = 512
	numImages          = 1
	presetStyle        = "DYNAMIC"
	controlNetImage    = "UPLOADED"
	controlNetPreproc  = 67
	controlNetStrength = "High"
)

// Options configures the Leonardo client.
type Options struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the three generation endpoints and
// downloads result images.
type Client struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
	logger     *infra.Logger
}

// GenerationRequest captures the inputs of one generation job.
type GenerationRequest struct {
	Prompt      string
	InitImageID string
}

type generationPayload struct {
	ModelID      string       `json:"modelId"`
	Prompt       string       `json:"prompt"`
	InitImageID  string       `json:"init_image_id"`
	InitStrength float64      `json:"init_strength"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	NumImages    int          `json:"num_images"`
	PresetStyle  string       `json:"presetStyle"`
	Alchemy      bool         `json:"alchemy"`
	ControlNets  []controlNet `json:"controlnets"`
}

type controlNet struct {
	InitImageID    string `json:"initImageId"`
	InitImageType  string `json:"initImageType"`
	PreprocessorID int    `json:"preprocessorId"`
	StrengthType   string `json:"strengthType"`
}

type uploadResponse struct {
	InitImageID     string `json:"init_image_id"`
	UploadInitImage *struct {
		ID string `json:"id"`
	} `json:"uploadInitImage"`
}

type generationResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type generationState struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	GeneratedImages []struct {
		URL string `json:"url"`
	} `json:"generated_images"`
}

type statusResponse struct {
	generationState
	GenerationsByPK *generationState `json:"generations_by_pk"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("leonardo: invalid base url: %w", err)
	}
	modelID := strings.TrimSpace(opts.ModelID)
	if modelID == "" {
		modelID = DefaultModelID
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		modelID:    modelID,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// ModelID returns the configured model selector.
func (c *Client) ModelID() string {
	return c.modelID
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// UploadInitImage sends the reference image as a multipart upload and returns
// the identifier the service assigned to it.
func (c *Client) UploadInitImage(ctx context.Context, path string) (string, error) {
	id, err := c.uploadInitImage(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}
	return id, nil
}

func (c *Client) uploadInitImage(ctx context.Context, path string) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("leonardo: read reference image: %w", err)
	}
	filename := filepath.Base(path)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("init_image", filename)
	if err != nil {
		return "", fmt.Errorf("leonardo: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("leonardo: build form: %w", err)
	}
	if err := form.WriteField("filename", filename); err != nil {
		return "", fmt.Errorf("leonardo: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("leonardo: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/init-image", &body)
	if err != nil {
		return "", fmt.Errorf("leonardo: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	raw, err := c.do(req, "upload init image")
	if err != nil {
		return "", err
	}
	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("leonardo: decode upload response: %w", err)
	}
	id := strings.TrimSpace(decoded.InitImageID)
	if id == "" && decoded.UploadInitImage != nil {
		id = strings.TrimSpace(decoded.UploadInitImage.ID)
	}
	if id == "" {
		return "", errors.New("leonardo: upload response has no init image id")
	}
	c.logger.Debug().
		Str("file", filename).
		Str("init_image_id", id).
		Msg("leonardo: reference image uploaded")
	return id, nil
}

// StartGeneration submits one generation job anchored to the reference image
// and returns the job identifier.
func (c *Client) StartGeneration(ctx context.Context, in GenerationRequest) (string, error) {
	id, err := c.startGeneration(ctx, in)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationRequest, err)
	}
	return id, nil
}

func (c *Client) startGeneration(ctx context.Context, in GenerationRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return "", errors.New("leonardo: prompt is required")
	}
	initImageID := strings.TrimSpace(in.InitImageID)
	if initImageID == "" {
		return "", errors.New("leonardo: init image id is required")
	}
	payload := generationPayload{
		ModelID:      c.modelID,
		Prompt:       prompt,
		InitImageID:  initImageID,
		InitStrength: initStrength,
		Width:        imageWidth,
		Height:       imageHeight,
		NumImages:    numImages,
		PresetStyle:  presetStyle,
		Alchemy:      true,
		ControlNets: []controlNet{{
			InitImageID:    initImageID,
			InitImageType:  controlNetImage,
			PreprocessorID: controlNetPreproc,
			StrengthType:   controlNetStrength,
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("leonardo: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("leonardo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	raw, err := c.do(req, "start generation")
	if err != nil {
		return "", err
	}
	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("leonardo: decode generation response: %w", err)
	}
	id := strings.TrimSpace(decoded.SDGenerationJob.GenerationID)
	if id == "" {
		return "", errors.New("leonardo: generation response has no generation id")
	}
	return id, nil
}

// GetGeneration queries the status of a generation job. Errors are returned
// unclassified; the poller decides whether to retry them.
func (c *Client) GetGeneration(ctx context.Context, generationID string) (domain.GenerationJob, error) {
	if !c.HasCredentials() {
		return domain.GenerationJob{}, ErrMissingAPIKey
	}
	generationID = strings.TrimSpace(generationID)
	if generationID == "" {
		return domain.GenerationJob{}, errors.New("leonardo: generation id is required")
	}
	endpoint := c.baseURL + "/generations/" + url.PathEscape(generationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("leonardo: build request: %w", err)
	}
	c.authorize(req)

	raw, err := c.do(req, "get generation")
	if err != nil {
		return domain.GenerationJob{}, err
	}
	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.GenerationJob{}, fmt.Errorf("leonardo: decode status response: %w", err)
	}
	state := decoded.generationState
	if decoded.GenerationsByPK != nil {
		state = *decoded.GenerationsByPK
	}
	job := domain.GenerationJob{
		ID:     generationID,
		Status: domain.ParseJobStatus(state.Status),
	}
	for _, img := range state.GeneratedImages {
		if u := strings.TrimSpace(img.URL); u != "" {
			job.ResultURL = u
			break
		}
	}
	return job, nil
}

// Download fetches the raw bytes of a result image. Result URLs are public, so
// no credentials are sent.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	data, err := c.download(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	return data, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("leonardo: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("leonardo: build download request: %w", err)
	}
	data, err := c.do(req, "download image")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("leonardo: downloaded image is empty")
	}
	return data, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

// do executes req and returns the body of a 2xx response. Other statuses come
// back as *domain.APIError carrying the remote payload.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leonardo: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("leonardo: %s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.APIError{
			Op:         "leonardo: " + op,
			StatusCode: resp.StatusCode,
			Payload:    string(raw),
		}
	}
	return raw, nil
}
