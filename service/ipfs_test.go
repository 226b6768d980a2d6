package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKubo answers the subset of the IPFS HTTP API the shell uses
func fakeKubo(t *testing.T, versionCalls *atomic.Int32, healthy bool) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v0/version"):
			versionCalls.Add(1)
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"Message":"node starting","Code":0,"Type":"error"}`))
				return
			}
			w.Write([]byte(`{"Version":"0.30.0","Commit":"abc","Repo":"16","System":"amd64/linux","Golang":"go1.22"}`))
		case strings.HasPrefix(r.URL.Path, "/api/v0/add"):
			w.Write([]byte(`{"Name":"QmFake","Hash":"QmFake","Size":"18"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestIPFSAdd(t *testing.T) {
	var calls atomic.Int32
	srv := fakeKubo(t, &calls, true)

	ipfs, err := NewIPFS(context.Background(), srv.URL, 5*time.Second, RetryPolicy{Attempts: 3, Delay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	cid, err := ipfs.Add(context.Background(), strings.NewReader("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, "QmFake", cid)
}

func TestIPFSInitGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := fakeKubo(t, &calls, false)

	_, err := NewIPFS(context.Background(), srv.URL, time.Second, RetryPolicy{Attempts: 3, Delay: time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestIPFSAddCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := fakeKubo(t, &calls, true)

	ipfs, err := NewIPFS(context.Background(), srv.URL, time.Second, RetryPolicy{Attempts: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ipfs.Add(ctx, strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIPFSInitWithoutDelay(t *testing.T) {
	var calls atomic.Int32
	srv := fakeKubo(t, &calls, false)

	var err error
	require.NotPanics(t, func() {
		_, err = NewIPFS(context.Background(), srv.URL, time.Second, RetryPolicy{Attempts: 2, Delay: 0})
	})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}
