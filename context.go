package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"pixforge/config"
	"pixforge/credentials"
	"pixforge/encoder"
	"pixforge/failures"
	"pixforge/journal"
	"pixforge/logger"
	"pixforge/metrics"
	"pixforge/models"
	"pixforge/publisher"
	"pixforge/success"
)

const skipConfigLoad = "skipConfigLoad"

type commandContext struct {
	configFlag   string
	logLevelFlag string
	logFileFlag  string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != "" {
			cfg.Log.Level = c.logLevelFlag
		}
		if c.logFileFlag != "" {
			cfg.Log.File = c.logFileFlag
		}
		if err := setupLogging(cfg.Log); err != nil {
			c.configErr = err
			return
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

func setupLogging(l config.Log) error {
	level, err := logger.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	if l.File != "" || !l.Console {
		if err := logger.Init(l.File, l.Console); err != nil {
			return err
		}
	}
	logger.SetLevel(level)
	return nil
}

// session holds everything a pipeline command opens from the data dir. Each
// field is released by close in reverse order.
type session struct {
	lock     *flock.Flock
	journal  *journal.Journal
	failures *failures.Store
	success  *success.Store
	creds    *credentials.Store
	metrics  *metrics.Recorder
	encoders *encoder.Registry
}

// openSession takes the run lock and opens the data-dir stores. With locked
// false the lock is skipped, for read-only commands.
func openSession(locked bool) (*session, error) {
	if err := os.MkdirAll(config.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &session{metrics: metrics.New(), encoders: encoder.Defaults()}
	if locked {
		s.lock = flock.New(config.GetLockPath())
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w (%s)", models.ErrRunLocked, config.GetLockPath())
		}
	}

	var err error
	if s.journal, err = journal.Open(config.GetJournalDBPath()); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if s.failures, err = failures.Open(config.GetFailuresDBPath()); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to open failure store: %w", err)
	}
	if s.success, err = success.Open(config.GetSuccessDBPath()); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to open success store: %w", err)
	}
	return s, nil
}

// credentialStore opens the credentials database on first use.
func (s *session) credentialStore() (*credentials.Store, error) {
	if s.creds != nil {
		return s.creds, nil
	}
	store, err := credentials.Open(config.GetCredentialsDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials store: %w", err)
	}
	s.creds = store
	return store, nil
}

func (s *session) publisher(targets []models.PublishTarget) (*publisher.Publisher, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	for _, t := range targets {
		if t.CredentialsKey == "" {
			continue
		}
		creds, err := s.credentialStore()
		if err != nil {
			return nil, err
		}
		return publisher.New(targets, creds), nil
	}
	return publisher.New(targets, nil), nil
}

func (s *session) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		logger.Warnf("failed to write metrics textfile: %v", err)
	}
}

func (s *session) close() {
	var errs []error
	if s.creds != nil {
		errs = append(errs, s.creds.Close())
	}
	if s.success != nil {
		errs = append(errs, s.success.Close())
	}
	if s.failures != nil {
		errs = append(errs, s.failures.Close())
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warnf("failed to close session: %v", err)
	}
}
