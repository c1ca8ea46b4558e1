// Package pinning validates image uploads and pins them through Pinata.
package pinning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultGateway   = "gateway.pinata.cloud"
	DefaultMaxBytes  = 5 << 20
	DefaultCacheSize = 256
)

var (
	ErrInvalidFile   = errors.New("pinning: invalid file")
	ErrNoFile        = fmt.Errorf("%w: no file provided", ErrInvalidFile)
	ErrNotImage      = fmt.Errorf("%w: only image files are allowed", ErrInvalidFile)
	ErrTooLarge      = fmt.Errorf("%w: file is too large", ErrInvalidFile)
	ErrNotConfigured = errors.New("pinning: PINATA_JWT is not configured")
	ErrUpstream      = errors.New("pinning: upstream pin failed")
)

// Pinner is satisfied by *Client.
type Pinner interface {
	PinFile(ctx context.Context, name, contentType string, data []byte) (PinResponse, error)
}

// Observer is told about every successful upload.
type Observer interface {
	Pinned(bytes int, cached bool)
}

type Config struct {
	JWT       string
	Gateway   string
	MaxBytes  int64
	CacheSize int
}

// File is one upload as received from the client.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Result is what the client stores on the product.
type Result struct {
	CID  string `json:"cid"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Name string `json:"name"`
}

type Gateway struct {
	pinner     Pinner
	configured bool
	host       string
	maxBytes   int64
	cache      *lru.Cache[[blake2b.Size256]byte, Result]
	obs        Observer
	log        zerolog.Logger
}

func NewGateway(cfg Config, pinner Pinner, obs Observer, log zerolog.Logger) (*Gateway, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[[blake2b.Size256]byte, Result](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("pinning: cache: %w", err)
	}
	return &Gateway{
		pinner:     pinner,
		configured: cfg.JWT != "" && pinner != nil,
		host:       gatewayHost(cfg.Gateway),
		maxBytes:   cfg.MaxBytes,
		cache:      cache,
		obs:        obs,
		log:        log,
	}, nil
}

func gatewayHost(g string) string {
	g = strings.TrimSpace(g)
	g = strings.TrimPrefix(g, "https://")
	g = strings.TrimPrefix(g, "http://")
	g = strings.TrimRight(g, "/")
	if g == "" {
		return DefaultGateway
	}
	return g
}

// MaxBytes is the configured upload ceiling.
func (g *Gateway) MaxBytes() int64 {
	return g.maxBytes
}

// URL returns the public gateway URL for a CID.
func (g *Gateway) URL(c string) string {
	return "https://" + g.host + "/ipfs/" + c
}

// Upload validates f and pins it. Content already pinned by this process is
// answered from cache.
func (g *Gateway) Upload(ctx context.Context, f File) (Result, error) {
	if !g.configured {
		return Result{}, ErrNotConfigured
	}
	if f.Body == nil {
		return Result{}, ErrNoFile
	}

	data, err := io.ReadAll(io.LimitReader(f.Body, g.maxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("pinning: read upload: %w", err)
	}
	if len(data) == 0 {
		return Result{}, ErrNoFile
	}

	contentType := detectType(f.ContentType, data)
	if !strings.HasPrefix(contentType, "image/") {
		return Result{}, ErrNotImage
	}
	if int64(len(data)) > g.maxBytes {
		return Result{}, ErrTooLarge
	}

	digest := blake2b.Sum256(data)
	if cached, ok := g.cache.Get(digest); ok {
		cached.Name = f.Name
		g.observe(len(data), true)
		return cached, nil
	}

	pin, err := g.pinner.PinFile(ctx, f.Name, contentType, data)
	if err != nil {
		return Result{}, err
	}
	c, err := cid.Decode(pin.IpfsHash)
	if err != nil {
		return Result{}, fmt.Errorf("%w: invalid cid %q: %v", ErrUpstream, pin.IpfsHash, err)
	}

	res := Result{
		CID:  c.String(),
		URL:  g.URL(c.String()),
		Size: int64(len(data)),
		Name: f.Name,
	}
	g.cache.Add(digest, res)
	g.observe(len(data), false)
	g.log.Info().Str("cid", res.CID).Int64("size", res.Size).Str("name", res.Name).Msg("image pinned")
	return res, nil
}

func (g *Gateway) observe(n int, cached bool) {
	if g.obs != nil {
		g.obs.Pinned(n, cached)
	}
}

// detectType trusts a specific declared type and sniffs otherwise.
func detectType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	return http.DetectContentType(data)
}
