package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var (
	ErrGatewayUnavailable = errors.New("storage gateway unavailable")
	ErrGatewayRejected    = errors.New("storage gateway rejected the content")
)

// ContentAdder stores raw bytes and returns their content identifier
type ContentAdder interface {
	Add(ctx context.Context, r io.Reader) (string, error)
}

// minRetryDelay is used when a policy has no positive delay
const minRetryDelay = 100 * time.Millisecond

// RetryPolicy bounds how many times startup tries to reach an external service
type RetryPolicy struct {
	Attempts uint64
	Delay    time.Duration
}

// IPFS is the handle to the self-hosted IPFS node. It is created once at
// startup and shared between requests.
type IPFS struct {
	sh *shell.Shell
}

// NewIPFS connects to the IPFS HTTP API at apiURL. The node is probed until it
// answers or the retry policy is exhausted.
func NewIPFS(ctx context.Context, apiURL string, timeout time.Duration, policy RetryPolicy) (*IPFS, error) {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if policy.Delay <= 0 {
		policy.Delay = minRetryDelay
	}

	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	attempt := uint64(0)
	backoff := retry.WithMaxRetries(policy.Attempts-1, retry.NewConstant(policy.Delay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		_, _, err := sh.Version()
		if err != nil {
			zap.L().Error("Failed to initialize IPFS", zap.Uint64("attempt", attempt), zap.Error(err))

			if attempt < policy.Attempts {
				zap.L().Info("Retrying IPFS initialization", zap.Duration("in", policy.Delay))
			}

			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	zap.L().Info("IPFS node is ready", zap.String("api", apiURL))
	return &IPFS{sh: sh}, nil
}

// Add pins r on the node. The shell has no per-call context, so ctx is only
// checked before the request is made and the shell timeout bounds the rest.
func (i *IPFS) Add(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cid, err := i.sh.Add(r, shell.Pin(true))
	if err != nil {
		var apiErr *shell.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %s", ErrGatewayRejected, apiErr.Message)
		}

		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	return cid, nil
}
