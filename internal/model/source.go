package model

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/garyellow/tucurso-bot/internal/r2client"
)

//go:embed default_bundle.yml
var defaultBundle []byte

// DefaultBundle returns the bundle compiled into the binary.
func DefaultBundle() (*Bundle, error) {
	return ParseBundle(defaultBundle, ".yml")
}

// ErrNotModified is returned by Fetch when the source still holds the
// revision identified by the given etag.
var ErrNotModified = errors.New("model: bundle not modified")

// Fetched is a raw bundle read from a source.
type Fetched struct {
	Data []byte
	// Ext is the decoder extension after any compression suffix is removed.
	Ext string
	// ETag identifies the revision, when the source has one.
	ETag string
}

// Source produces raw bundles.
type Source interface {
	// Name is the metric label of the source (embedded, file, r2).
	Name() string
	// Ref is the path or key the source reads, for logs.
	Ref() string
	// Fetch reads the bundle. With a non-empty etag it may return
	// ErrNotModified instead.
	Fetch(ctx context.Context, etag string) (*Fetched, error)
}

// EmbeddedSource serves the built-in bundle.
type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return "embedded" }
func (EmbeddedSource) Ref() string  { return "default_bundle.yml" }

func (EmbeddedSource) Fetch(context.Context, string) (*Fetched, error) {
	return &Fetched{Data: defaultBundle, Ext: ".yml"}, nil
}

// FileSource reads a bundle from disk. Files ending in .zst are decompressed.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }
func (s FileSource) Ref() string  { return s.Path }

func (s FileSource) Fetch(_ context.Context, _ string) (*Fetched, error) {
	f, err := os.Open(s.Path) //nolint:gosec // Path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	return decode(f, s.Path)
}

// objectStore is the part of *r2client.Client used by R2Source.
type objectStore interface {
	DownloadIfChanged(ctx context.Context, key, etag string) (*r2client.Object, bool, error)
}

// R2Source reads a bundle object from R2 with conditional GETs.
type R2Source struct {
	client objectStore
	key    string
}

// NewR2Source reads key through client.
func NewR2Source(client *r2client.Client, key string) *R2Source {
	return &R2Source{client: client, key: key}
}

func (s *R2Source) Name() string { return "r2" }
func (s *R2Source) Ref() string  { return s.key }

func (s *R2Source) Fetch(ctx context.Context, etag string) (*Fetched, error) {
	obj, changed, err := s.client.DownloadIfChanged(ctx, s.key, etag)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrNotModified
	}
	defer obj.Body.Close()

	fetched, err := decode(obj.Body, s.key)
	if err != nil {
		return nil, err
	}
	fetched.ETag = obj.ETag
	return fetched, nil
}

// decode reads r fully, decompressing when name carries the zstd suffix.
func decode(r io.Reader, name string) (*Fetched, error) {
	if r2client.IsCompressed(name) {
		data, err := r2client.Decompress(r)
		if err != nil {
			return nil, err
		}
		return &Fetched{Data: data, Ext: filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name)))}, nil
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, r2client.MaxDecompressedSize)); err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return &Fetched{Data: buf.Bytes(), Ext: filepath.Ext(name)}, nil
}
