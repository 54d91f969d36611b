package test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/sourcerer-app/sourcerer/internal/config"
	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

var setupLock sync.Mutex

// HelperOption defines functional options for Helper.
type HelperOption func(*Options)

type Options struct {
	CaptureLoggingOutput bool // CaptureLoggingOutput enables capturing of logging output
	ConfigMutators       []func(*config.Config)
}

// WithCaptureLoggingOutput creates a logging capture option.
func WithCaptureLoggingOutput() HelperOption {
	return func(opts *Options) {
		opts.CaptureLoggingOutput = true
	}
}

// WithConfigMutator applies mutations to the loaded configuration after defaults are set.
func WithConfigMutator(mutator func(*config.Config)) HelperOption {
	return func(opts *Options) {
		opts.ConfigMutators = append(opts.ConfigMutators, mutator)
	}
}

// Setup creates a new Helper instance for testing. Every application path
// is placed under a fresh temporary directory via the app home variable,
// so tests never touch a real installation.
func Setup(t *testing.T, opts ...HelperOption) Helper {
	setupLock.Lock()
	defer setupLock.Unlock()

	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	_ = os.Setenv("DEBUG", "true")
	_ = os.Setenv("TZ", "UTC")

	random := uuid.New().String()
	tmpDir := fileutil.MustTempDir(fmt.Sprintf("sourcerer-test-%s", random))
	require.NoError(t, os.Setenv("SOURCERER_HOME", tmpDir))

	ctx := createDefaultContext()

	// Reset viper state to avoid leaking flag bindings across tests.
	viper.Reset()

	cfg, err := config.Load()
	require.NoError(t, err)

	for _, mutate := range options.ConfigMutators {
		mutate(cfg)
	}

	store := settings.New(cfg.Paths.DataDir,
		settings.WithLockTimeout(cfg.Store.LockTimeout),
		settings.WithBackupRetention(cfg.Store.BackupRetention),
	)

	helper := Helper{
		Context: ctx,
		Config:  cfg,
		Store:   store,

		tmpDir: tmpDir,
	}

	if options.CaptureLoggingOutput {
		helper.LoggingOutput = &SyncBuffer{buf: new(bytes.Buffer)}
		loggerInstance := logger.NewLogger(
			logger.WithDebug(),
			logger.WithFormat("text"),
			logger.WithWriter(helper.LoggingOutput),
		)
		helper.Context = logger.WithFixedLogger(helper.Context, loggerInstance)
	}

	ctx, cancel := context.WithCancel(helper.Context)
	helper.Context = ctx
	helper.Cancel = cancel

	t.Cleanup(helper.Cleanup)
	return helper
}

// Helper provides test utilities and configuration.
type Helper struct {
	Context       context.Context
	Cancel        context.CancelFunc
	Config        *config.Config
	Store         *settings.Store
	LoggingOutput *SyncBuffer

	tmpDir string
}

// Cleanup removes temporary test directories.
func (h Helper) Cleanup() {
	if h.Cancel != nil {
		h.Cancel()
	}
	_ = os.RemoveAll(h.tmpDir)
}

// TempFile creates a temp file with specified name and content.
func (h Helper) TempFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	filename := filepath.Join(h.tmpDir, name)
	err := os.WriteFile(filename, data, 0600)
	require.NoError(t, err)
	return filename
}

// SyncBuffer provides thread-safe buffer operations.
type SyncBuffer struct {
	buf  *bytes.Buffer
	lock sync.Mutex
}

func (b *SyncBuffer) Write(p []byte) (n int, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

// createDefaultContext creates a context with default logger settings.
func createDefaultContext() context.Context {
	ctx := context.Background()
	return logger.WithLogger(ctx, logger.NewLogger(
		logger.WithDebug(),
		logger.WithFormat("text"),
	))
}
