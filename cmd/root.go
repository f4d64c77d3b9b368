package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interviewer/internal/confidence"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/playback"
)

const (
	app = "interviewer"
)

type Config struct {
	Interview  interview.Config `mapstructure:"interview"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Confidence ConfidenceConfig `mapstructure:"confidence"`
	Playback   PlaybackConfig   `mapstructure:"playback"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	ReportDir  string           `mapstructure:"report-dir"`
}

type GeminiConfig struct {
	APIKey             string        `mapstructure:"api-key"`
	APIKeyFile         string        `mapstructure:"api-key-file"`
	TranscriptionModel string        `mapstructure:"transcription-model"`
	MaxRetries         int           `mapstructure:"max-retries"`
	RetryDelay         time.Duration `mapstructure:"retry-delay"`
}

type ConfidenceConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PlaybackConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	playback.Config `mapstructure:",squash"`
}

type KnowledgeConfig struct {
	// Path to the SQLite knowledge base. Empty disables retrieval.
	Path string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer runs voice mock interviews built from a resume and a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"gemini.api-key":      "GEMINI_API_KEY",
		"confidence.endpoint": "EMOTION_API_ENDPOINT",
		"playback.addr":       "PLAYER_ADDR",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	d := interview.DefaultConfig()
	viper.SetDefault("interview.num-questions", d.NumQuestions)
	viper.SetDefault("interview.candidate-name", d.CandidateName)
	viper.SetDefault("interview.interviewer-name", d.InterviewerName)
	viper.SetDefault("interview.company-name", d.CompanyName)
	viper.SetDefault("interview.interviewer.model", d.Interviewer.Model)
	viper.SetDefault("interview.evaluator.model", d.Evaluator.Model)

	viper.SetDefault("gemini.max-retries", 2)
	viper.SetDefault("gemini.retry-delay", 5*time.Second)
	viper.SetDefault("confidence.enabled", true)
	viper.SetDefault("confidence.endpoint", confidence.DefaultEndpoint)
	viper.SetDefault("confidence.timeout", confidence.DefaultTimeout)
	viper.SetDefault("playback.enabled", true)
	viper.SetDefault("playback.addr", playback.DefaultAddr)
	viper.SetDefault("report-dir", "reports")
}

func initConfig() {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicitly given config must parse; the default one may be absent.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{Interview: interview.DefaultConfig()}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	return config, nil
}
