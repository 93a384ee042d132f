package etl

import (
	"errors"
	"fmt"
)

// Stage names a pipeline step; failures report the stage they happened in.
type Stage string

const (
	StageLoad      Stage = "load"
	StageClean     Stage = "clean"
	StageEnrich    Stage = "enrich"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
	StageReshape   Stage = "reshape"
	StageExport    Stage = "export"
)

// FileAccessError means the input could not be opened or downloaded.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file access %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// ParseError means the input is not valid delimited tabular data.
type ParseError struct {
	Path string
	Line int // 0 when unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError means an output destination could not be written.
type StorageError struct {
	Target string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Target, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StageError tags an error with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsFileAccess reports whether err wraps a FileAccessError.
func IsFileAccess(err error) bool {
	var fe *FileAccessError
	return errors.As(err, &fe)
}

// IsParse reports whether err wraps a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsStorage reports whether err wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// FailedStage returns the stage recorded in err, or "" if none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
