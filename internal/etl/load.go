package etl

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/fetcher"
	"github.com/sells-group/crime-etl/internal/model"
)

// Source describes where the raw incident table comes from.
type Source struct {
	// Path is a local file or an http(s):// or ftp:// URL.
	Path       string
	Delimiter  string // default "," (tab for .tsv)
	Encoding   string // WHATWG label; empty means UTF-8
	Sheet      string // XLSX sheet name; empty means the first sheet
	TempDir    string // download directory for remote sources
	LazyQuotes bool   // accept bare quotes inside unquoted fields
}

// Loader reads a Source into an in-memory Table.
type Loader struct {
	http fetcher.Fetcher
	ftp  fetcher.Fetcher
}

// NewLoader creates a Loader. Either fetcher may be nil when remote sources are not used.
func NewLoader(httpFetcher, ftpFetcher fetcher.Fetcher) *Loader {
	return &Loader{http: httpFetcher, ftp: ftpFetcher}
}

// Load resolves src to a local file and parses it. A missing or unreadable input is a
// FileAccessError; input that is not valid tabular data is a ParseError.
func (l *Loader) Load(ctx context.Context, src Source) (*model.Table, error) {
	log := zap.L().With(zap.String("stage", string(StageLoad)), zap.String("input", src.Path))

	path, cleanup, err := l.resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileAccessError{Path: src.Path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileAccessError{Path: src.Path, Err: eris.New("load: path is a directory")}
	}

	rows, err := l.readRows(ctx, path, src)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &ParseError{Path: src.Path, Err: eris.New("load: no header row")}
	}

	header := rows[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	table, err := BuildTable(header, rows[1:])
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = src.Path
			return nil, pe
		}
		return nil, &ParseError{Path: src.Path, Err: err}
	}

	log.Info("load: input loaded",
		zap.Int("rows_out", table.Len()),
		zap.Int("extra_columns", len(table.ExtraColumns)),
	)
	return table, nil
}

// resolve downloads remote sources into TempDir and returns the local path plus a cleanup func.
func (l *Loader) resolve(ctx context.Context, src Source) (string, func(), error) {
	noop := func() {}
	if !fetcher.IsRemote(src.Path) {
		return src.Path, noop, nil
	}

	var f fetcher.Fetcher
	switch fetcher.Scheme(src.Path) {
	case "ftp":
		f = l.ftp
	default:
		f = l.http
	}
	if f == nil {
		return "", noop, &FileAccessError{Path: src.Path, Err: eris.Errorf("load: no fetcher for scheme %q", fetcher.Scheme(src.Path))}
	}

	name, err := fetcher.BaseName(src.Path)
	if err != nil {
		return "", noop, &FileAccessError{Path: src.Path, Err: err}
	}

	tempDir := src.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", noop, &FileAccessError{Path: src.Path, Err: eris.Wrap(err, "load: create temp dir")}
	}
	dir, err := os.MkdirTemp(tempDir, "input-*")
	if err != nil {
		return "", noop, &FileAccessError{Path: src.Path, Err: eris.Wrap(err, "load: create download dir")}
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	local := filepath.Join(dir, name)
	n, err := f.DownloadToFile(ctx, src.Path, local)
	if err != nil {
		cleanup()
		return "", noop, &FileAccessError{Path: src.Path, Err: err}
	}
	zap.L().Info("load: downloaded input", zap.String("url", src.Path), zap.Int64("bytes", n))
	return local, cleanup, nil
}

// readRows dispatches on file extension and returns every row including the header.
func (l *Loader) readRows(ctx context.Context, path string, src Source) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".xlsx":
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: src.Sheet})
		if err != nil {
			return nil, &ParseError{Path: src.Path, Err: err}
		}
		return rows, nil

	case ".json":
		fh, err := os.Open(path)
		if err != nil {
			return nil, &FileAccessError{Path: src.Path, Err: err}
		}
		defer fh.Close() //nolint:errcheck
		rows, err := fetcher.ReadJSONTable(ctx, fh)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "load: read input")
			}
			return nil, &ParseError{Path: src.Path, Err: err}
		}
		return rows, nil

	case ".zip":
		rc, name, err := fetcher.OpenDelimited(path)
		if err != nil {
			return nil, &ParseError{Path: src.Path, Err: err}
		}
		defer rc.Close() //nolint:errcheck
		delim, err := delimiterRune(src.Delimiter, name)
		if err != nil {
			return nil, err
		}
		return readDelimited(ctx, rc, src, delim)

	default:
		delim, err := delimiterRune(src.Delimiter, path)
		if err != nil {
			return nil, err
		}
		fh, err := os.Open(path)
		if err != nil {
			return nil, &FileAccessError{Path: src.Path, Err: err}
		}
		defer fh.Close() //nolint:errcheck
		return readDelimited(ctx, fh, src, delim)
	}
}

func readDelimited(ctx context.Context, r io.Reader, src Source, delim rune) ([][]string, error) {
	rows, err := fetcher.ReadAll(ctx, r, fetcher.CSVOptions{
		Delimiter:  delim,
		Encoding:   src.Encoding,
		LazyQuotes: src.LazyQuotes,
	})
	if err != nil {
		var fpe *fetcher.ParseError
		if errors.As(err, &fpe) {
			return nil, &ParseError{Path: src.Path, Line: fpe.Line, Err: fpe.Err}
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "load: read input")
		}
		return nil, &ParseError{Path: src.Path, Err: err}
	}
	return rows, nil
}

// delimiterRune converts the configured delimiter to a rune. ".tsv" files default to tab.
func delimiterRune(delim, name string) (rune, error) {
	switch strings.ToLower(delim) {
	case "":
		if strings.EqualFold(filepath.Ext(name), ".tsv") {
			return '\t', nil
		}
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(delim)
	if size != len(delim) || r == utf8.RuneError {
		return 0, eris.Errorf("load: delimiter must be a single character, got %q", delim)
	}
	return r, nil
}
