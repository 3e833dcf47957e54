// Package fetch retrieves and decodes frame images from HTTP(S) URLs and
// local files. PNG, JPEG, GIF, WebP, BMP and TIFF are understood; files
// ending in ".lz4" are decompressed before decoding.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pierrec/lz4/v4"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedScheme is returned for locators that are neither HTTP(S)
// URLs nor file paths.
var ErrUnsupportedScheme = errors.New("unsupported locator scheme")

// StatusError is returned when an HTTP fetch gets a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Decode decodes an image from r. name is used to detect lz4 compression.
func Decode(r io.Reader, name string) (image.Image, error) {
	if strings.HasSuffix(strings.ToLower(name), ".lz4") {
		r = lz4.NewReader(r)
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

// HTTP fetches frames over HTTP(S).
type HTTP struct {
	Client *http.Client
}

// Fetch implements sequence.Fetcher.
func (h *HTTP) Fetch(ctx context.Context, locator string) (image.Image, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: locator, StatusCode: resp.StatusCode}
	}
	return Decode(resp.Body, req.URL.Path)
}

// File reads frames from the local filesystem. Relative paths are resolved
// against Root.
type File struct {
	Root string
}

// Fetch implements sequence.Fetcher.
func (f *File) Fetch(ctx context.Context, locator string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(locator, "file://")
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Decode(fh, path)
}

// Router dispatches on the locator scheme: http and https go to HTTP,
// file URLs and bare paths go to File.
type Router struct {
	HTTP *HTTP
	File *File
}

// NewRouter returns a Router with the given client and file root.
func NewRouter(client *http.Client, root string) *Router {
	return &Router{HTTP: &HTTP{Client: client}, File: &File{Root: root}}
}

// Fetch implements sequence.Fetcher.
func (r *Router) Fetch(ctx context.Context, locator string) (image.Image, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("parse locator %q: %w", locator, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.HTTP.Fetch(ctx, locator)
	case "", "file":
		return r.File.Fetch(ctx, locator)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
