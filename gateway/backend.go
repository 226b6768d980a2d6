package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Backend talks to the orchestrator's REST endpoints
type Backend struct {
	BaseURL string
	HTTP    *http.Client
}

func NewBackend(baseURL string) *Backend {
	return &Backend{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

type UploadResponse struct {
	ShortLink string `json:"shortLink"`
	IPFSLink  string `json:"ipfsLink"`
}

type SaveURLRequest struct {
	Link        string `json:"link"`
	ProjectName string `json:"projectName"`
	FileType    string `json:"fileType"`
	Username    string `json:"username"`
}

type backendError struct {
	Message   string `json:"message"`
	RequestID string `json:"requestID"`
}

// Upload stores f through the orchestrator, which also records its metadata
func (b *Backend) Upload(ctx context.Context, f *File) (*UploadResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, err
	}

	for k, v := range map[string]string{"projectName": f.ProjectName, "username": f.Username} {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var res UploadResponse
	if err := b.do(ctx, "/upload", w.FormDataContentType(), &body, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

// SaveURL records metadata for a file stored elsewhere
func (b *Backend) SaveURL(ctx context.Context, r SaveURLRequest) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return b.do(ctx, "/upload/save-url", "application/json", bytes.NewReader(data), nil)
}

func (b *Backend) do(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		zap.L().Error("Failed to reach backend", zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		var e backendError
		_ = json.Unmarshal(data, &e)

		zap.L().Warn("Backend request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", e.Message),
			zap.String("request_id", e.RequestID),
		)

		sentinel := ErrGatewayUnavailable
		if resp.StatusCode < 500 {
			sentinel = ErrGatewayRejected
		}

		if e.Message != "" {
			return fmt.Errorf("%w: %s", sentinel, e.Message)
		}
		return fmt.Errorf("%w: backend answered %s", sentinel, resp.Status)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: malformed backend response, %w", ErrGatewayUnavailable, err)
	}

	return nil
}
