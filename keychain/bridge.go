package keychain

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

	"go.uber.org/zap"
)

// response is the envelope every keychain request resolves with
type response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Data    struct {
		Username string `json:"username"`
	} `json:"data"`
}

// Bridge talks to a keychain agent listening on a loopback HTTP address. The
// agent exposes the keychain requests (handshake, sign_buffer, custom_json)
// and prompts the user for every one of them.
type Bridge struct {
	BaseURL string
	Client  *http.Client
}

func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client: &http.Client{
			// The user has to confirm every request in the keychain prompt
			Timeout: 5 * time.Minute,
		},
	}
}

func (b *Bridge) Authenticate(ctx context.Context) (string, error) {
	if err := b.handshake(ctx); err != nil {
		return "", err
	}

	res, err := b.request(ctx, "sign_buffer", map[string]any{
		"username": "",
		"message":  LoginMessage,
		"method":   AuthorityLevel,
	})
	if err != nil {
		return "", err
	}

	if !res.Success {
		zap.L().Error("Failed to log in with keychain", zap.String("error", res.Error), zap.String("message", res.Message))
		return "", fmt.Errorf("%w: %s", ErrSignatureRejected, reason(res))
	}

	if res.Data.Username == "" {
		return "", fmt.Errorf("%w: keychain did not report an account", ErrSignatureRejected)
	}

	return res.Data.Username, nil
}

func (b *Bridge) SubmitRecord(ctx context.Context, username, recordKind string, payload any) (*Confirmation, error) {
	if err := b.handshake(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload, %w", err)
	}

	res, err := b.request(ctx, "custom_json", map[string]any{
		"username":    username,
		"id":          recordKind,
		"method":      AuthorityLevel,
		"json":        string(data),
		"display_msg": UploadDisplay,
	})
	if err != nil {
		return nil, err
	}

	if !res.Success {
		zap.L().Error("Failed to broadcast record", zap.String("username", username), zap.String("error", res.Error))
		return nil, fmt.Errorf("%w: %s", ErrBroadcastRejected, reason(res))
	}

	var result struct {
		ID string `json:"id"`
	}
	if len(res.Result) > 0 {
		// Older agents reply with a bare result, a missing id is not fatal
		if err := json.Unmarshal(res.Result, &result); err != nil {
			zap.L().Debug("Keychain result carries no transaction id", zap.ByteString("result", res.Result), zap.Error(err))
		}
	}

	return &Confirmation{TxID: result.ID}, nil
}

func (b *Bridge) handshake(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/handshake", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtensionUnavailable, err)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		zap.L().Error("Keychain is not installed. Please install it to continue.", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrExtensionUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: handshake answered %s", ErrExtensionUnavailable, resp.Status)
	}

	return nil
}

func (b *Bridge) request(ctx context.Context, name string, body map[string]any) (*response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/"+name, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtensionUnavailable, err)
	}
	defer resp.Body.Close()

	var res response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty %s response", ErrExtensionUnavailable, name)
		}

		return nil, fmt.Errorf("%w: malformed %s response, %w", ErrExtensionUnavailable, name, err)
	}

	return &res, nil
}

func reason(res *response) string {
	if res.Message != "" {
		return res.Message
	}
	if res.Error != "" {
		return res.Error
	}

	return "request declined"
}
