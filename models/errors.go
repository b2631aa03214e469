package models

import "errors"

var (
	ErrConfigurationMismatch = errors.New("no asset configuration matches file")
	ErrDecodeFailure         = errors.New("failed to decode image")
	ErrEncodeFailure         = errors.New("failed to encode image")
	ErrDirectoryMissing      = errors.New("source directory does not exist")
	ErrBackupConflict        = errors.New("backup already exists and overwrite was not confirmed")
	ErrRunLocked             = errors.New("another pixforge run holds the lock")
)

// Kind returns a short label for the error kind, used when persisting failures.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigurationMismatch):
		return "configuration_mismatch"
	case errors.Is(err, ErrDecodeFailure):
		return "decode_failure"
	case errors.Is(err, ErrEncodeFailure):
		return "encode_failure"
	case errors.Is(err, ErrDirectoryMissing):
		return "directory_missing"
	case errors.Is(err, ErrBackupConflict):
		return "backup_conflict"
	case errors.Is(err, ErrRunLocked):
		return "run_locked"
	default:
		return "unknown"
	}
}
