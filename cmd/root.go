package cmd

import (
	"log"
	"time"

	"github.com/avoronov/jobsift/internal/jobsource"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobsift"
)

type Config struct {
	Search     *jobsource.SearchParams `mapstructure:"search"`
	Provider   *ProviderConfig         `mapstructure:"provider"`
	OutputFile string                  `mapstructure:"output-file"`
	ResumeFile string                  `mapstructure:"resume-file"`
	Backend    *BackendConfig          `mapstructure:"backend"`
}

type ProviderConfig struct {
	URL        string `mapstructure:"url"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type BackendConfig struct {
	Provider    string         `mapstructure:"provider"`
	Model       string         `mapstructure:"model"`
	MaxAttempts int            `mapstructure:"max-attempts"`
	Backoff     time.Duration  `mapstructure:"backoff"`
	Ollama      *OllamaConfig  `mapstructure:"ollama"`
	Gemini      *GeminiBackend `mapstructure:"gemini"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

type GeminiBackend struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobsift evaluates fresh job listings against your resume with a local model and keeps the verdicts in a spreadsheet",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Optional .env next to the binary, same as the config file location.
	_ = godotenv.Load()

	if err := viper.BindEnv("resume-file", "JOBSIFT_RESUME_FILE"); err != nil {
		log.Fatalf("binding JOBSIFT_RESUME_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("provider.api-key-file", "JOBSIFT_PROVIDER_API_KEY_FILE"); err != nil {
		log.Fatalf("binding JOBSIFT_PROVIDER_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("backend.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobsift.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the run command. If there is no config, we can skip initialization.
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
