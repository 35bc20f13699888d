// Package cli implements the medrag command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/telemetry"
)

// version is set at build time.
var version = "dev"

// annotationSettingsOnly marks commands that need only the settings service.
// annotationNoServices marks commands that need nothing bootstrapped.
const (
	annotationSettingsOnly = "medrag/settings-only"
	annotationNoServices   = "medrag/no-services"
)

// Options is handed to the bootstrap function.
type Options struct {
	// ConfigDir overrides the configuration directory.
	ConfigDir string

	// DataDir overrides storage.data_dir.
	DataDir string

	// SettingsOnly skips building storage, AI capabilities and the registry.
	SettingsOnly bool
}

// Services is everything the commands operate on.
type Services struct {
	Registry driving.DocumentRegistry
	Settings driving.SettingsService

	// Health reports capability and backend status for the HTTP API.
	Health httpapi.HealthFunc

	// Metrics records request and pipeline metrics. May be nil.
	Metrics *telemetry.Metrics

	// Close releases storage, AI clients and relays. May be nil.
	Close func() error
}

// BootstrapFunc builds the services for a command invocation.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc

	servicesMu   sync.Mutex
	appServices  *Services
	ownsServices bool

	// Resolved services used by the commands.
	registry        driving.DocumentRegistry
	settingsService driving.SettingsService

	verbose   bool
	jsonLogs  bool
	configDir string
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Question answering over medical documents",
	Long: `medrag ingests medical documents (PDF, images, DOCX, XLSX), extracts their
content with a vision model or their text layer, and answers questions
grounded in what each document says.

Run 'medrag serve' for the HTTP API, or use the commands below directly.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.medrag)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for sqlite and filesystem storage")
}

// SetVersion sets the version reported by 'medrag version' and the health endpoint.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Version returns the build version.
func Version() string {
	return version
}

// SetBootstrap installs the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices injects ready-made services, bypassing bootstrap.
// The caller keeps ownership; they are not closed by Execute.
func SetServices(s *Services) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	appServices = s
	ownsServices = false
	bind(s)
}

// Execute runs the root command and releases any services it bootstrapped.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// prepare configures logging and bootstraps the services the command needs.
func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetJSON(jsonLogs)

	if cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}
	settingsOnly := cmd.Annotations[annotationSettingsOnly] == "true"
	return ensureServices(cmd.Context(), settingsOnly)
}

func ensureServices(ctx context.Context, settingsOnly bool) error {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if appServices != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}

	s, err := bootstrap(ctx, Options{
		ConfigDir:    configDir,
		DataDir:      dataDir,
		SettingsOnly: settingsOnly,
	})
	if err != nil {
		return fmt.Errorf("starting medrag: %w", err)
	}

	appServices = s
	ownsServices = true
	bind(s)
	return nil
}

func bind(s *Services) {
	if s == nil {
		registry, settingsService = nil, nil
		return
	}
	registry, settingsService = s.Registry, s.Settings
}

func closeServices() {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if appServices == nil || !ownsServices {
		return
	}
	if appServices.Close != nil {
		if err := appServices.Close(); err != nil {
			logger.Warn("Shutdown: %v", err)
		}
	}
	appServices = nil
	ownsServices = false
	bind(nil)
}

// requireRegistry returns the registry or an error when it was not built.
func requireRegistry() (driving.DocumentRegistry, error) {
	if registry == nil {
		return nil, errors.New("document registry not configured")
	}
	return registry, nil
}
