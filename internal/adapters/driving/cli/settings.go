package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

var settingsOnly = map[string]string{annotationSettingsOnly: "true"}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, storage backends and other options.

Settings are stored in ~/.medrag/config.toml. Environment variables and a
.env file override the stored values.`,
	Annotations: settingsOnly,
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: settingsOnly,
	RunE:        runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:         "embedding",
	Short:       "Configure the embedding provider",
	Annotations: settingsOnly,
	RunE:        runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:         "llm",
	Short:       "Configure the answer generation provider",
	Annotations: settingsOnly,
	RunE:        runSettingsLLM,
}

var settingsVisionCmd = &cobra.Command{
	Use:         "vision",
	Short:       "Configure the page analysis provider",
	Annotations: settingsOnly,
	RunE:        runSettingsVision,
}

var settingsValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Check configuration and ping every configured provider",
	Annotations: settingsOnly,
	RunE:        runSettingsValidate,
}

// stdin is the source of interactive answers.
var stdin = bufio.NewReader(os.Stdin)

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsVisionCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	printProvider(cmd, "Embedding", settings.Embedding.ProviderSettings)
	printProvider(cmd, "LLM", settings.LLM.ProviderSettings)
	printProvider(cmd, "Vision", settings.Vision.ProviderSettings)

	cmd.Println("[Storage]")
	cmd.Printf("  Vector index: %s\n", settings.VectorIndex.Backend)
	if settings.VectorIndex.Backend == domain.VectorBackendQdrant {
		cmd.Printf("  Qdrant URL: %s\n", settings.VectorIndex.URL)
	}
	cmd.Printf("  Documents: %s\n", settings.Storage.Documents)
	cmd.Printf("  Uploads: %s\n", settings.Storage.Blobs)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Max file size: %d MB\n", settings.Ingestion.MaxFileSize>>20)
	cmd.Printf("  Extraction workers: %d\n", settings.Ingestion.ExtractionWorkers)
	cmd.Printf("  Embedding batch size: %d\n", settings.Ingestion.BatchSize)
	cmd.Printf("  Retrieval top-k: %d\n", settings.Retrieval.TopK)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	if len(settings.Server.AllowedOrigins) > 0 {
		cmd.Printf("  CORS origins: %s\n", strings.Join(settings.Server.AllowedOrigins, ", "))
	}
	if settings.Events.RedisURL != "" {
		cmd.Printf("  Event relay: %s (%s)\n", settings.Events.RedisURL, settings.Events.RedisChannel)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'medrag settings embedding|llm|vision' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, title string, p domain.ProviderSettings) {
	cmd.Printf("[%s]\n", title)
	cmd.Printf("  Provider: %s\n", p.Provider.Description())
	cmd.Printf("  Model: %s\n", p.Model)
	if p.Provider.IsLocal() || p.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", p.BaseURL)
	}
	if p.Provider.RequiresAPIKey() {
		if p.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(p.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !p.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

// providerPrompt describes one capability's interactive configuration.
type providerPrompt struct {
	title     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	apply     func(provider domain.AIProvider, model, apiKey string) error
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, providerPrompt{
		title:     "Embedding",
		providers: []domain.AIProvider{domain.AIProviderOpenAI, domain.AIProviderGemini, domain.AIProviderOllama},
		defaults:  domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
	})
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, providerPrompt{
		title: "LLM",
		providers: []domain.AIProvider{
			domain.AIProviderOpenAI, domain.AIProviderAnthropic, domain.AIProviderGemini, domain.AIProviderOllama,
		},
		defaults: domain.DefaultLLMModels(),
		apply:    settingsService.SetLLMProvider,
	})
}

func runSettingsVision(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, providerPrompt{
		title:     "Vision",
		providers: []domain.AIProvider{domain.AIProviderAnthropic, domain.AIProviderGemini},
		defaults:  domain.DefaultVisionModels(),
		apply:     settingsService.SetVisionProvider,
	})
}

func configureProvider(cmd *cobra.Command, p providerPrompt) error {
	cmd.Printf("Select %s Provider\n", p.title)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(stdin), len(p.providers), 1)
	selected := p.providers[idx-1]

	defaultModel := p.defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(stdin)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := p.apply(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(p.title), err)
	}

	cmd.Printf("%s provider configured: %s (%s)\n", p.title, selected.Description(), model)
	cmd.Println("Run 'medrag settings validate' to check connectivity.")
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Configuration: FAILED: %v\n", err)
		return err
	}
	cmd.Println("Configuration: OK")

	cmd.Print("Providers: ")
	if err := settingsService.ValidateProviders(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return err
	}
	cmd.Println("OK")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(stdin)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
