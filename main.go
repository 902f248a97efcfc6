// locsync — CI-driven locale file translation with incremental key diffing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/locsync/locsync/cache"
	"github.com/locsync/locsync/config"
	"github.com/locsync/locsync/ghpr"
	"github.com/locsync/locsync/gitrev"
	"github.com/locsync/locsync/i18n"
	"github.com/locsync/locsync/langmeta"
	"github.com/locsync/locsync/pipeline"
	"github.com/locsync/locsync/runlock"
	"github.com/locsync/locsync/settings"
	"github.com/locsync/locsync/translate"
	"github.com/locsync/locsync/verify"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locsync",
		Short: "Translate locale files through a remote translation service",
		Long: `locsync — CI-driven locale file translation.

Reads JSON/YAML locale files, diffs them against the prior git revision,
sends only added and modified keys to a translation service, merges the
results into the existing per-language files and verifies placeholders,
key parity and length sanity. Optionally commits the result and opens a
pull request.

Commands:
  run         Translate changed keys and write target-language files
  check       Verify existing translations without calling the service
  auth        Manage stored API keys
  version     Show version information

Configuration comes from .locsync.yaml in the project root, overlaid
with LOCSYNC_* environment variables and command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newRunCmd(),
		newCheckCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("locsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

type runFlags struct {
	sourceFile string
	sourceDir  string
	outputDir  string
	langs      string
	sourceLang string

	provider string
	apiKey   string
	model    string
	baseURL  string
	proxy    string
	timeout  time.Duration

	full   bool
	dryRun bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Translate changed keys and write target-language files",
		Long: `Translate locale files and write the per-language outputs.

By default the run is incremental: each source file is diffed against
its immediately prior git revision and only added or modified keys are
sent to the translation service. Deleted keys are pruned from the
existing target files. Files without history fall back to whole-file
translation.

Examples:
  # Incremental run with .locsync.yaml configuration
  locsync run

  # Translate one file into two languages, full mode
  locsync run --source-file locales/en.json --lang de,fr --full

  # Show what would be translated
  locsync run --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(f)
		},
	}

	cmd.Flags().StringVar(&f.sourceFile, "source-file", "", "Source locale file (mutually exclusive with --source-dir)")
	cmd.Flags().StringVar(&f.sourceDir, "source-dir", "", "Directory with source locale files")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Output root for per-language subdirectories")
	cmd.Flags().StringVar(&f.langs, "lang", "", "Target languages (comma-separated)")
	cmd.Flags().StringVar(&f.sourceLang, "source-lang", "", "Source language code (default en)")

	cmd.Flags().StringVar(&f.provider, "provider", "", "Translation provider: endpoint, openai")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key (or LOCSYNC_API_KEY env var)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (openai provider)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Translation service URL")
	cmd.Flags().StringVar(&f.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Request timeout (0 = default)")

	cmd.Flags().BoolVar(&f.full, "full", false, "Disable incremental diffing, retranslate whole files")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show what would be translated without calling the service")

	return cmd
}

func runRun(f runFlags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(rootDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, aborting run...")
		cancel()
	}()

	opts, err := buildPipelineOptions(cfg, f)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(opts)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Translating..."))
	sum, err := runner.Run(ctx)
	if err != nil {
		logError(i18n.T("Run failed"))
		return err
	}

	printSummary(sum)

	if cfg.Git.Commit && !f.dryRun && sum.FilesChanged > 0 {
		if err := commitAndOpenPR(ctx, cfg, sum); err != nil {
			return err
		}
	}

	logSuccess(i18n.T("Run complete"))
	return nil
}

// loadConfig loads .locsync.yaml plus environment, then applies flag
// overrides. Flags win over environment, environment wins over file.
func loadConfig(f runFlags) (*config.Config, error) {
	if f.sourceFile != "" {
		os.Setenv("LOCSYNC_SOURCE_FILE", f.sourceFile)
	}
	if f.sourceDir != "" {
		os.Setenv("LOCSYNC_SOURCE_DIR", f.sourceDir)
	}
	if f.outputDir != "" {
		os.Setenv("LOCSYNC_OUTPUT_DIR", f.outputDir)
	}
	if f.langs != "" {
		os.Setenv("LOCSYNC_LANGUAGES", f.langs)
	}
	if f.sourceLang != "" {
		os.Setenv("LOCSYNC_SOURCE_LANGUAGE", f.sourceLang)
	}
	if f.provider != "" {
		os.Setenv("LOCSYNC_PROVIDER", f.provider)
	}
	if f.model != "" {
		os.Setenv("LOCSYNC_MODEL", f.model)
	}
	if f.baseURL != "" {
		os.Setenv("LOCSYNC_BASE_URL", f.baseURL)
	}
	if f.proxy != "" {
		os.Setenv("LOCSYNC_PROXY", f.proxy)
	}

	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if f.full {
		cfg.Full = true
	}
	if f.timeout > 0 {
		cfg.TimeoutSeconds = int(f.timeout / time.Second)
	}
	return cfg, nil
}

func buildPipelineOptions(cfg *config.Config, f runFlags) (pipeline.Options, error) {
	opts := pipeline.Options{
		SourceFile:      cfg.SourceFile,
		SourceDir:       cfg.SourceDir,
		OutputDir:       cfg.OutputDir,
		SourceLanguage:  cfg.SourceLanguage,
		TargetLanguages: cfg.Languages,
		Incremental:     !cfg.Full,
		DryRun:          f.dryRun,
		Exclusions: translate.Exclusions{
			Keys:  cfg.Exclude.Keys,
			Paths: cfg.Exclude.Paths,
		},
		Repo:  gitrev.New(rootDir),
		OnLog: logInfo,
		OnProgress: func(path string, index, total int) {
			logInfo("[%d/%d] %s", index, total, path)
		},
	}

	if !f.dryRun {
		svc, err := translate.New(translate.Config{
			Provider: cfg.Provider,
			BaseURL:  cfg.BaseURL,
			APIKey:   resolveAPIKey(f.apiKey, cfg.Provider),
			Model:    cfg.Model,
			Proxy:    cfg.Proxy,
			Timeout:  cfg.Timeout(),
		})
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Service = svc
	}

	switch cfg.Cache.Backend {
	case "memory":
		opts.Cache = cache.NewMemory(time.Duration(cfg.Cache.TTLHours) * time.Hour)
	case "redis":
		rc, err := cache.NewRedis(cache.RedisConfig{
			URL: cfg.Cache.RedisURL,
			TTL: time.Duration(cfg.Cache.TTLHours) * time.Hour,
		})
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Cache = rc
	}

	return opts, nil
}

// resolveAPIKey resolves the API key: flag > LOCSYNC_API_KEY env >
// stored credentials.
func resolveAPIKey(flagKey, provider string) string {
	if flagKey != "" {
		return flagKey
	}
	if key := os.Getenv("LOCSYNC_API_KEY"); key != "" {
		return key
	}
	if provider == "" {
		provider = translate.ProviderEndpoint
	}
	return settings.GetAPIKey(provider)
}

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	var langs string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify existing translations without calling the service",
		Long: `Run the verifier against the existing translated files.

Checks placeholder preservation, key parity and length sanity for every
configured target language. Exits with status 1 when any error-severity
issue is found, making it usable as a CI gate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(langs)
		},
	}

	cmd.Flags().StringVar(&langs, "lang", "", "Target languages (comma-separated)")
	return cmd
}

func runCheck(langs string) error {
	if langs != "" {
		os.Setenv("LOCSYNC_LANGUAGES", langs)
	}
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(pipeline.Options{
		SourceFile:      cfg.SourceFile,
		SourceDir:       cfg.SourceDir,
		OutputDir:       cfg.OutputDir,
		SourceLanguage:  cfg.SourceLanguage,
		TargetLanguages: cfg.Languages,
		OnLog:           logInfo,
	})
	if err != nil {
		return err
	}

	sum, err := runner.Check(context.Background())
	if err != nil {
		return err
	}

	printIssues(sum)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	logInfo("Checked %d files: %d errors, %d warnings",
		sum.FilesProcessed, sum.Errors, sum.Warnings)

	if sum.Errors > 0 {
		return fmt.Errorf("%d error-severity issues found", sum.Errors)
	}
	logSuccess("All translations verified")
	return nil
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored API keys",
	}

	var apiKey string
	set := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv("LOCSYNC_API_KEY")
			}
			if apiKey == "" {
				return fmt.Errorf("no key given: use --api-key or LOCSYNC_API_KEY")
			}
			if err := settings.SetAPIKey(args[0], apiKey); err != nil {
				return err
			}
			logSuccess("Stored API key for %s", args[0])
			return nil
		},
	}
	set.Flags().StringVar(&apiKey, "api-key", "", "API key to store")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show which providers have stored keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settings.Load()
			if err != nil {
				return err
			}
			if len(store) == 0 {
				logInfo("No stored API keys")
				return nil
			}
			for provider := range store {
				fmt.Fprintf(os.Stderr, "  %s: key stored\n", provider)
			}
			return nil
		},
	}

	cmd.AddCommand(set, status)
	return cmd
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

func printSummary(sum *pipeline.Summary) {
	printIssues(sum)

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	logInfo(i18n.N("%d file changed", "%d files changed", sum.FilesChanged), sum.FilesChanged)
	logInfo(i18n.N("Translated %d key", "Translated %d keys", sum.KeysTranslated), sum.KeysTranslated)
	if sum.KeysDeleted > 0 {
		logInfo("Deleted %d keys", sum.KeysDeleted)
	}
	if sum.KeysExcluded > 0 {
		logInfo("Excluded %d keys (copied verbatim)", sum.KeysExcluded)
	}
	if sum.CacheHits > 0 {
		logInfo("Cache hits: %d", sum.CacheHits)
	}
	if sum.FilesSkipped > 0 {
		logInfo("Skipped %d unchanged files", sum.FilesSkipped)
	}
	if sum.Errors > 0 || sum.Warnings > 0 {
		logWarning("Verification: %d errors, %d warnings", sum.Errors, sum.Warnings)
	}
}

func printIssues(sum *pipeline.Summary) {
	for _, issue := range sum.Issues {
		msg := issue.Message
		if issue.Path != "" {
			msg = issue.Path + ": " + msg
		}
		name := langmeta.Name(issue.Language)
		switch issue.Severity {
		case verify.SeverityError:
			logError("%s (%s): %s", issue.Language, name, msg)
		default:
			logWarning("%s (%s): %s", issue.Language, name, msg)
		}
	}
}

// ---------------------------------------------------------------------------
// Commit and pull request
// ---------------------------------------------------------------------------

func commitAndOpenPR(ctx context.Context, cfg *config.Config, sum *pipeline.Summary) error {
	repo := gitrev.New(rootDir)

	if err := repo.CheckoutBranch(ctx, cfg.Git.Branch); err != nil {
		return err
	}

	changed, err := repo.HasChanges(ctx)
	if err != nil {
		return err
	}
	if !changed {
		logInfo(i18n.T("No changes to commit"))
		return nil
	}

	if err := repo.CommitAll(ctx, cfg.Git.Message); err != nil {
		return err
	}
	logSuccess("Committed on %s", cfg.Git.Branch)

	if !cfg.Git.Push {
		return nil
	}
	if err := repo.Push(ctx, cfg.Git.Remote, cfg.Git.Branch); err != nil {
		return err
	}
	logSuccess("Pushed to %s/%s", cfg.Git.Remote, cfg.Git.Branch)

	if !cfg.PR.Open {
		return nil
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return fmt.Errorf("pr.open requires the GITHUB_TOKEN environment variable")
	}

	client := ghpr.NewClient(token, cfg.PR.BaseURL)
	created, err := client.Create(ctx, cfg.PR.Repo, ghpr.PullRequest{
		Title: cfg.PR.Title,
		Head:  cfg.Git.Branch,
		Base:  cfg.PR.Base,
		Body: fmt.Sprintf("Automated translation update: %d files changed, %d keys translated, %d deleted, %d excluded.",
			sum.FilesChanged, sum.KeysTranslated, sum.KeysDeleted, sum.KeysExcluded),
	})
	if err != nil {
		return err
	}
	logSuccess("Opened pull request #%d: %s", created.Number, created.HTMLURL)
	return nil
}
