package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"go-detection-viewer/pkg/models"

	"github.com/disintegration/imaging"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPDetector posts images to a remote inference service that hosts the
// model and writes the returned annotated image into the save directory.
type HTTPDetector struct {
	inferenceURL string
	modelPath    string
	client       *http.Client
}

type inferenceResponse struct {
	Detections []models.BoundingBox `json:"detections"`
	// Image is the annotated image, base64 encoded; optional
	Image   string `json:"image,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewHTTPDetector creates a detector calling inferenceURL
func NewHTTPDetector(inferenceURL, modelPath string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		inferenceURL: inferenceURL,
		modelPath:    modelPath,
		client:       &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDetector) Name() string {
	return "http"
}

func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *HTTPDetector) Detect(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, img, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", opts.SourceName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, &encoded); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	fields := map[string]string{
		"model": d.modelPath,
		"conf":  strconv.FormatFloat(opts.Confidence, 'f', -1, 64),
		"imgsz": strconv.Itoa(opts.ImageSize),
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var payload inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Success != nil && !*payload.Success {
		return nil, fmt.Errorf("inference service: %s", payload.Message)
	}

	result := &Result{
		Boxes:   payload.Detections,
		SaveDir: opts.SaveDir(),
	}
	if !opts.Save {
		return result, nil
	}

	annotated, err := d.annotatedBytes(img, payload)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.SaveDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.SaveDir(), opts.SourceName), annotated, 0o644); err != nil {
		return nil, fmt.Errorf("write annotated image: %w", err)
	}
	return result, nil
}

func (d *HTTPDetector) annotatedBytes(img image.Image, payload inferenceResponse) ([]byte, error) {
	if payload.Image != "" {
		data, err := base64.StdEncoding.DecodeString(payload.Image)
		if err != nil {
			return nil, fmt.Errorf("decode annotated image: %w", err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, DrawBoxes(img, payload.Detections), imaging.JPEG); err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// CheckHealth calls the /health endpoint next to the inference URL
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(d.inferenceURL)
	if err != nil {
		return fmt.Errorf("invalid inference URL: %w", err)
	}
	u.Path = path.Join(path.Dir(u.Path), "health")
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
