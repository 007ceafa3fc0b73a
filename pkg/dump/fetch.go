package dump

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Open Library publishes its monthly dumps at these addresses.
const (
	AuthorsDumpURL = "https://openlibrary.org/data/ol_dump_authors_latest.txt.gz"
	WorksDumpURL   = "https://openlibrary.org/data/ol_dump_works_latest.txt.gz"
)

// Client is used for dump downloads. Dumps are several gigabytes, so there is no
// overall timeout; cancel ctx to abort.
var Client = &http.Client{
	Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// Ensure checks if a dump exists at path. If not and url is non-empty, it downloads
// url to path, writing to a temporary file in the same directory first so that an
// interrupted download never leaves a truncated dump behind.
func Ensure(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("dump %s not found and no download url configured", path)
	}

	slog.InfoContext(ctx, "Dump not found, downloading", "path", path, "url", url)
	start := time.Now()
	n, err := download(ctx, url, path)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	slog.InfoContext(ctx, "Dump downloaded", "path", path, "bytes", n, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func download(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "betterread-loader")

	resp, err := Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return n, err
	}
	return n, nil
}
