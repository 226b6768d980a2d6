// Package gateway stores user files on IPFS, either through a third-party
// pinning service or through the orchestrator's own add endpoint.
package gateway

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrGatewayUnavailable = errors.New("storage gateway unavailable")
	ErrGatewayRejected    = errors.New("storage gateway rejected the file")
)

// File is a file selected by the user for upload
type File struct {
	Name        string
	Data        []byte
	ProjectName string
	Username    string
}

// Stored describes where a file ended up. ShortLink is only set when the
// orchestrator stored the file, since it also minted and recorded the link.
type Stored struct {
	CID       string `json:"cid"`
	Link      string `json:"link"`
	ShortLink string `json:"shortLink,omitempty"`
	Pinned    bool   `json:"pinned"`
}

// Pinner uploads a file to a pinning service
type Pinner interface {
	Pin(ctx context.Context, f *File) (*Stored, error)
}

// Client picks the storage path for a file
type Client struct {
	Pinner  Pinner
	Backend *Backend
}

func NewClient(p Pinner, b *Backend) *Client {
	return &Client{Pinner: p, Backend: b}
}

// Store sends hypertext documents to the orchestrator and everything else to
// the pinning service. There is no fallback between the two.
func (c *Client) Store(ctx context.Context, f *File) (*Stored, error) {
	if IsHypertext(f) {
		zap.L().Debug("Routing file to the orchestrator", zap.String("name", f.Name))

		res, err := c.Backend.Upload(ctx, f)
		if err != nil {
			return nil, err
		}

		return &Stored{
			CID:       cidFromLink(res.IPFSLink),
			Link:      res.IPFSLink,
			ShortLink: res.ShortLink,
		}, nil
	}

	zap.L().Debug("Routing file to the pinning service", zap.String("name", f.Name))
	return c.Pinner.Pin(ctx, f)
}

// IsHypertext reports whether f is an HTML document, by extension or content
func IsHypertext(f *File) bool {
	if strings.EqualFold(path.Ext(f.Name), ".html") {
		return true
	}

	return mimetype.Detect(f.Data).Is("text/html")
}

func cidFromLink(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}
