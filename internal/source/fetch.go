package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "vakit/internal/log"
)

// fetchResult is the body of one HTTP fetch, fresh or revalidated.
type fetchResult struct {
	Body      []byte
	FromCache bool // true if the server answered 304 and the cached body was reused
}

// cacheMeta holds HTTP revalidation metadata for a single URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// fetcher performs conditional GETs (ETag / Last-Modified) and keeps the
// last body per URL on disk so a 304 can be answered locally. It never
// serves a cached body on a transport error; stale fallback is the
// time-table cache's decision.
type fetcher struct {
	client   *http.Client
	cacheDir string
}

func newFetcher(cacheDir string, timeout time.Duration) *fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &fetcher{
		client:   &http.Client{Timeout: timeout},
		cacheDir: cacheDir,
	}
}

func (f *fetcher) get(ctx context.Context, url string) (fetchResult, error) {
	if url == "" {
		return fetchResult{}, errors.New("source URL is empty")
	}

	var meta cacheMeta
	var cachedBody []byte
	cachePath := ""
	if f.cacheDir != "" {
		cachePath = f.cachePathForURL(url)
		if err := os.MkdirAll(cachePath, 0o700); err != nil {
			return fetchResult{}, err
		}
		meta, _ = f.loadMeta(cachePath)
		cachedBody, _ = os.ReadFile(filepath.Join(cachePath, "body"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}, err
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("source fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetchResult{}, err
		}
		if cachePath != "" {
			newMeta := cacheMeta{
				URL:          url,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := f.saveCache(cachePath, newMeta, body); err != nil {
				appLog.Error("source http cache save failed", err, "url", redactURL(url))
			}
		}
		appLog.Info("source fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
		return fetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return fetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("source fetch not modified; using cached body", "url", redactURL(url))
		return fetchResult{Body: cachedBody, FromCache: true}, nil

	default:
		return fetchResult{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (f *fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *fetcher) loadMeta(cachePath string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func (f *fetcher) saveCache(cachePath string, meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only; feed URLs often carry tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "url://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
