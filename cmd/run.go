package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/avoronov/jobsift/internal/evaluation"
	"github.com/avoronov/jobsift/internal/jobsource"
	"github.com/avoronov/jobsift/internal/logger"
	"github.com/avoronov/jobsift/internal/secrets"
	"github.com/avoronov/jobsift/internal/store"
	"github.com/avoronov/jobsift/internal/textgen"
	"github.com/avoronov/jobsift/internal/textgen/gemini"
	"github.com/avoronov/jobsift/internal/textgen/ollama"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultOutputFile = "jobs.xlsx"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch a batch of listings, evaluate the new ones, update the spreadsheet",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before evaluating")
	runCmd.Flags().StringP("output", "o", "", "path of the results workbook. Default is jobs.xlsx.")

	viper.BindPFlag("output-file", runCmd.Flags().Lookup("output"))
}

// run is the main command for the cli. A run processes exactly one fetched
// batch then stops; dedup makes repeated runs with larger offsets cheap.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting jobsift", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Search == nil {
		logger.Fatal("search parameters are required under the search key")
	}

	if config.Provider == nil || strings.TrimSpace(config.Provider.URL) == "" {
		logger.Fatal("listings provider url is required under provider.url")
	}

	outputFile := config.OutputFile
	if outputFile == "" {
		outputFile = defaultOutputFile
	}

	resumeText := loadResumeText(config.ResumeFile, logger)

	st := store.New(logger)

	results, err := st.Load(outputFile)
	if err != nil {
		logger.Fatal("loading previous results", zap.Error(err))
	}

	logger.Info("loaded previous results", zap.Int("count", results.Len()), zap.String("path", outputFile))

	apiKey := ""
	if config.Provider.APIKeyFile != "" {
		apiKey, err = secrets.Load(secrets.Source{
			Name: "provider api key",
			File: config.Provider.APIKeyFile,
		})
		if err != nil {
			logger.Fatal("loading provider api key", zap.Error(err))
		}
	}

	source := jobsource.New(config.Provider.URL, apiKey, logger)

	generator, err := newGenerator(ctx, config.Backend, logger)
	if err != nil {
		logger.Fatal("building text-generation backend", zap.Error(err))
	}

	logger.Info("text-generation backend ready", zap.String("model", generator.Model()))

	pipeline := evaluation.NewPipeline(source, generator, config.Search, resumeText, results.Links(), logger)

	fresh := pipeline.FetchNew(ctx, config.Search.Offset)
	if fresh.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no new listings to evaluate"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Evaluate %d new listings?", fresh.Len()),
			Items: []string{PromptYes, PromptNo},
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	rows, summary := evaluation.Summarize(pipeline.Evaluate(ctx, fresh))
	added := results.Append(rows...)

	logger.Info("evaluation completed",
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("rows_added", added),
	)

	written, err := st.Save(results, outputFile)
	if err != nil {
		logger.Fatal("writing results", zap.Error(err))
	}

	logger.Info("results written", zap.String("path", written), zap.Int("total_rows", results.Len()))
}

// loadResumeText reads the resume once at startup. A missing or unreadable
// file degrades to description-only evaluation instead of aborting.
func loadResumeText(path string, logger *zap.Logger) string {
	if strings.TrimSpace(path) == "" {
		logger.Warn("no resume file configured, evaluating on descriptions only")
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("could not load resume text, evaluating on descriptions only",
			zap.String("path", path),
			zap.Error(err),
		)
		return ""
	}

	return strings.TrimSpace(string(data))
}

func newGenerator(ctx context.Context, cfg *BackendConfig, logger *zap.Logger) (textgen.Generator, error) {
	if cfg == nil {
		cfg = &BackendConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = "ollama"
	}

	var backend textgen.Generator
	switch provider {
	case "ollama":
		url := ""
		if cfg.Ollama != nil {
			url = cfg.Ollama.URL
		}
		backend = ollama.New(url, cfg.Model, logger.With(zap.String("backend", "ollama")))
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini configuration is required when the gemini backend is selected")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set backend.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		backend, err = gemini.New(ctx, apiKey, cfg.Model, logger.With(zap.String("backend", "gemini")))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported backend provider: %s", cfg.Provider)
	}

	retryLogger := logger.With(
		zap.String("backend", provider),
		zap.String("model", backend.Model()),
	)

	return textgen.NewRetrier(backend, cfg.MaxAttempts, cfg.Backoff, retryLogger), nil
}
