// Package fetcher retrieves raw incident sources (local files, HTTP, FTP) and decodes
// delimited, zipped, and XLSX tabular data.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote source.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// IsRemote reports whether src is an http(s) or ftp URL rather than a local path.
func IsRemote(src string) bool {
	switch Scheme(src) {
	case "http", "https", "ftp":
		return true
	default:
		return false
	}
}

// Scheme returns the lowercased URL scheme of src, or "" for local paths.
func Scheme(src string) string {
	if !strings.Contains(src, "://") {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// BaseName returns the last path element of a URL, used to name downloaded temp files.
func BaseName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse url")
	}
	p := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "download.csv", nil
	}
	return p, nil
}
