package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/kelseyhightower/envconfig"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Loader struct {
	mu               sync.RWMutex
	cfg              *ServiceConfig
	out              io.Writer
	configSignalChan chan os.Signal
	reloadErrors     chan error
}

func NewLoader(cfg *ServiceConfig) *Loader {
	return &Loader{
		cfg:              cfg,
		out:              os.Stdout,
		configSignalChan: make(chan os.Signal, 1),
		reloadErrors:     make(chan error, 1),
	}
}

func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.App.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.App.CommitSHA = CommitSHA
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ServiceConfig) Validate() error {
	if !slices.Contains([]string{StoragePostgres, StorageMongo, StorageMemory}, c.Storage.Backend) {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Search.DefaultItemsPerPage <= 0 {
		return fmt.Errorf("%w: default items per page must be positive", ErrInvalidConfig)
	}

	if c.Search.MaxItemsPerPage > 0 && c.Search.MaxItemsPerPage < c.Search.DefaultItemsPerPage {
		return fmt.Errorf("%w: max items per page %d is below the default %d",
			ErrInvalidConfig, c.Search.MaxItemsPerPage, c.Search.DefaultItemsPerPage)
	}

	if c.Compression.Enabled && (c.Compression.Level < 1 || c.Compression.Level > 9) {
		return fmt.Errorf("%w: compression level %d is outside 1..9", ErrInvalidConfig, c.Compression.Level)
	}

	return nil
}

// Current returns the configuration in effect.
func (l *Loader) Current() *ServiceConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.cfg
}

// WatchConfigSignals reloads the configuration from the environment on SIGHUP
// and dumps it on SIGUSR1 until ctx is done. Reload outcomes are reported on
// the returned channel; nil means success.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.configSignalChan, syscall.SIGHUP, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(l.configSignalChan)
		defer close(l.reloadErrors)

		for {
			select {
			case <-ctx.Done():
				return

			case sig := <-l.configSignalChan:
				switch sig {
				case syscall.SIGHUP:
					l.reportReloadStatus(l.Reload())

				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()

	return l.reloadErrors
}

// Reload replaces the current configuration when the environment parses and
// validates. The previous configuration stays in effect otherwise.
func (l *Loader) Reload() error {
	cfg, err := Init()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()

	return nil
}

func (l *Loader) DumpConfig() {
	configJSON, err := json.MarshalIndent(l.Current(), "", "  ")
	if err != nil {
		fmt.Fprintf(l.out, "Error marshaling config: %v\n", err)

		return
	}

	fmt.Fprintf(l.out, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", string(configJSON))
}

func (l *Loader) reportReloadStatus(err error) {
	select {
	case l.reloadErrors <- err:
	default:
	}
}
