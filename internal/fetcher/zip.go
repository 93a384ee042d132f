package fetcher

import (
	"archive/zip"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// delimitedExts are the archive entries treated as delimited incident data.
var delimitedExts = map[string]bool{".csv": true, ".txt": true, ".tsv": true}

// IsDelimited reports whether name has a delimited-text extension.
func IsDelimited(name string) bool {
	return delimitedExts[strings.ToLower(path.Ext(name))]
}

// zipEntryReader closes the entry and the archive together.
type zipEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *zipEntryReader) Close() error {
	entryErr := r.ReadCloser.Close()
	archiveErr := r.archive.Close()
	if entryErr != nil {
		return eris.Wrap(entryErr, "zip: close entry")
	}
	return eris.Wrap(archiveErr, "zip: close archive")
}

// OpenDelimited opens the first delimited-text entry of a ZIP archive, in archive order.
// Directory entries and macOS resource forks are skipped. The caller must close the reader.
func OpenDelimited(zipPath string) (io.ReadCloser, string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, "", eris.Wrap(err, "zip: open archive")
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") || !IsDelimited(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			_ = r.Close()
			return nil, "", eris.Wrapf(err, "zip: open entry %s", f.Name)
		}
		return &zipEntryReader{ReadCloser: rc, archive: r}, f.Name, nil
	}

	_ = r.Close()
	return nil, "", eris.Errorf("zip: no delimited file in %s", zipPath)
}
