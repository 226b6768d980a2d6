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

	"bitbnb/hosting-api/model"

	"go.uber.org/zap"
)

const DefaultPinataURL = "https://api.pinata.cloud"

// Pinata pins files through the Pinata pinning API
type Pinata struct {
	BaseURL        string
	APIKey         string
	SecretKey      string
	ContentGateway string
	HTTP           *http.Client
}

func NewPinata(apiKey, secretKey, contentGateway string) *Pinata {
	return &Pinata{
		BaseURL:        DefaultPinataURL,
		APIKey:         apiKey,
		SecretKey:      secretKey,
		ContentGateway: contentGateway,
		HTTP:           &http.Client{Timeout: 5 * time.Minute},
	}
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues,omitempty"`
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (p *Pinata) Pin(ctx context.Context, f *File) (*Stored, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(pinataMetadata{
		Name: f.Name,
		KeyValues: map[string]string{
			"projectName": f.ProjectName,
			"username":    f.Username,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(p.BaseURL, "/")+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("pinata_api_key", p.APIKey)
	req.Header.Set("pinata_secret_api_key", p.SecretKey)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		zap.L().Error("Failed to reach pinning service", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: pinata answered %s", ErrGatewayUnavailable, resp.Status)
	case resp.StatusCode >= 400:
		zap.L().Warn("Pinning service rejected file", zap.String("name", f.Name), zap.String("status", resp.Status), zap.ByteString("body", data))
		return nil, fmt.Errorf("%w: pinata answered %s", ErrGatewayRejected, resp.Status)
	}

	var res pinataResponse
	if err := json.Unmarshal(data, &res); err != nil || res.IpfsHash == "" {
		return nil, fmt.Errorf("%w: malformed pinata response", ErrGatewayUnavailable)
	}

	return &Stored{
		CID:    res.IpfsHash,
		Link:   model.ContentLink(p.ContentGateway, res.IpfsHash),
		Pinned: true,
	}, nil
}
