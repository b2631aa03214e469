// Package publisher mirrors finished assets to the destinations configured
// under [publish]: a local directory, S3, Google Cloud Storage or SFTP.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"pixforge/logger"
	"pixforge/models"
)

// CredentialSource resolves a credentials key to backend access info.
type CredentialSource interface {
	Get(key string) (map[string]string, error)
}

// WriteFunc uploads one stream to one backend.
type WriteFunc func(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) error

// Publisher uploads files to every configured target.
type Publisher struct {
	targets []models.PublishTarget
	creds   CredentialSource
	write   WriteFunc
}

// New returns a publisher for targets. creds may be nil when no target uses a
// credentials key.
func New(targets []models.PublishTarget, creds CredentialSource) *Publisher {
	return &Publisher{targets: targets, creds: creds, write: WriteImage}
}

// WithWriter replaces the backend dispatcher.
func (p *Publisher) WithWriter(fn WriteFunc) *Publisher {
	p.write = fn
	return p
}

// Enabled reports whether there is anything to publish to.
func (p *Publisher) Enabled() bool {
	return p != nil && len(p.targets) > 0
}

// Publish uploads the file at localPath to every target. Targets are tried
// independently; the returned error joins every failure.
func (p *Publisher) Publish(ctx context.Context, localPath string) error {
	if !p.Enabled() {
		return nil
	}
	var errs []error
	for i, t := range p.targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.publishOne(ctx, t, localPath); err != nil {
			errs = append(errs, fmt.Errorf("target %d (%s): %w", i, t.Type, err))
			continue
		}
		logger.Debugf("published %s to %s target %d", filepath.Base(localPath), t.Type, i)
	}
	return errors.Join(errs...)
}

func (p *Publisher) publishOne(ctx context.Context, t models.PublishTarget, localPath string) error {
	info, err := p.AccessInfo(t, filepath.Base(localPath))
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	return p.write(ctx, info, f, t.Type)
}

// AccessInfo builds the backend access map for uploading a file named name to
// t: stored credentials first, then the target's static settings, then the
// per-file destination keys.
func (p *Publisher) AccessInfo(t models.PublishTarget, name string) (map[string]string, error) {
	info := make(map[string]string)
	if t.CredentialsKey != "" {
		if p.creds == nil {
			return nil, fmt.Errorf("credentials key %q set but no credentials store is open", t.CredentialsKey)
		}
		stored, err := p.creds.Get(t.CredentialsKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials %q: %w", t.CredentialsKey, err)
		}
		for k, v := range stored {
			info[k] = v
		}
	}
	for k, v := range t.Settings {
		info[k] = v
	}

	objectKey := path.Join(t.Folder, name)
	info["folder"] = t.Folder
	info["filename"] = name
	info["key"] = objectKey
	info["object"] = objectKey
	if _, ok := info["remotePath"]; !ok {
		info["remotePath"] = path.Join(info["remoteDir"], objectKey)
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		info["contentType"] = ct
	} else if filepath.Ext(name) == ".webp" {
		info["contentType"] = "image/webp"
	}
	return info, nil
}
