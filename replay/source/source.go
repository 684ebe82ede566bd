// Package source fetches raw recording bytes from files and HTTP servers.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// ProgressFunc receives the number of bytes read so far and the expected
// total, or -1 when the total is unknown.
type ProgressFunc func(loaded, total int64)

// File reads recordings from the local filesystem. The url may be a plain
// path or a file:// URL.
type File struct{}

// Fetch reads the whole file, reporting progress as it goes.
func (File) Fetch(ctx context.Context, location string, progress func(loaded, total int64)) ([]byte, error) {
	path := location
	if u, err := url.Parse(location); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &replay.LoadError{URL: location, Err: err}
	}
	defer f.Close()

	total := int64(-1)
	if info, err := f.Stat(); err == nil {
		total = info.Size()
	}
	data, err := readAll(ctx, f, total, progress)
	if err != nil {
		return nil, &replay.LoadError{URL: location, Err: err}
	}
	return data, nil
}

// HTTP downloads recordings with GET. Any status other than 200 is a
// load error.
type HTTP struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTP returns an HTTP source with the given request timeout.
func NewHTTP(timeout time.Duration, userAgent string) *HTTP {
	return &HTTP{Client: &http.Client{Timeout: timeout}, UserAgent: userAgent}
}

// Fetch downloads location.
func (h *HTTP) Fetch(ctx context.Context, location string, progress func(loaded, total int64)) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &replay.LoadError{URL: location, Err: err}
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &replay.LoadError{URL: location, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &replay.LoadError{URL: location, Err: fmt.Errorf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}
	data, err := readAll(ctx, resp.Body, resp.ContentLength, progress)
	if err != nil {
		return nil, &replay.LoadError{URL: location, Err: err}
	}
	return data, nil
}

// Auto picks HTTP for http(s) URLs and File for everything else.
type Auto struct {
	File File
	HTTP *HTTP
}

// Fetch dispatches on the URL scheme.
func (a Auto) Fetch(ctx context.Context, location string, progress func(loaded, total int64)) ([]byte, error) {
	if IsRemote(location) {
		h := a.HTTP
		if h == nil {
			h = &HTTP{}
		}
		return h.Fetch(ctx, location, progress)
	}
	return a.File.Fetch(ctx, location, progress)
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

const (
	readChunk = 64 << 10
	// maxPrealloc bounds the buffer reserved from an advertised length; a
	// larger body still reads fine, it just grows as it arrives.
	maxPrealloc = 64 << 20
)

func readAll(ctx context.Context, r io.Reader, total int64, progress ProgressFunc) ([]byte, error) {
	var buf []byte
	if total > 0 {
		buf = make([]byte, 0, min(total, maxPrealloc))
	}
	chunk := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if progress != nil {
				progress(int64(len(buf)), total)
			}
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
