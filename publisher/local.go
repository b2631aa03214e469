package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pixforge/logger"
)

// UploadToLocal writes content under a directory on the local file system,
// typically one served by a web server or synced elsewhere.
// accessInfo keys: baseDir, folder, filename.
func UploadToLocal(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	baseDir := accessInfo["baseDir"]
	folder := accessInfo["folder"]
	filename := accessInfo["filename"]
	if baseDir == "" || filename == "" {
		return fmt.Errorf("missing required accessInfo keys: baseDir, filename")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fullDir := filepath.Join(baseDir, folder)
	fullPath := filepath.Join(fullDir, filename)

	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", fullPath, err)
	}

	logger.Debugf("published '%s' to '%s'", filename, fullPath)
	return nil
}
