package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/logger"
)

const (
	app = "lead-scorer"
)

type Config struct {
	Server  *ServerConfig  `mapstructure:"server"`
	Scoring *ScoringConfig `mapstructure:"scoring"`
	AI      *AIConfig      `mapstructure:"ai"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	MaxUploadBytes int64    `mapstructure:"max-upload-bytes"`
	CORSOrigins    []string `mapstructure:"cors-origins"`
	ScoreRateLimit float64  `mapstructure:"score-rate-limit"`
}

type ScoringConfig struct {
	Workers        int           `mapstructure:"workers"`
	RateLimitRPS   float64       `mapstructure:"rate-limit-rps"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type AIConfig struct {
	Provider           string          `mapstructure:"provider"`
	MaxLogLength       int             `mapstructure:"max-log-length"`
	MaxReasoningLength int             `mapstructure:"max-reasoning-length"`
	OpenAI             *ProviderConfig `mapstructure:"openai"`
	Gemini             *ProviderConfig `mapstructure:"gemini"`
	Moonshot           *ProviderConfig `mapstructure:"moonshot"`
}

type ProviderConfig struct {
	APIKey      string  `mapstructure:"api-key"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base-url"`
	MaxTokens   int32   `mapstructure:"max-tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "lead-scorer ranks sales leads against a product offer with keyword rules and an AI intent check",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"server.addr":            "LEAD_SCORER_ADDR",
		"ai.provider":            "LEAD_SCORER_AI_PROVIDER",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is lead-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.max-upload-bytes", 10<<20)
	viper.SetDefault("server.cors-origins", []string{"*"})
	viper.SetDefault("server.score-rate-limit", 1)

	viper.SetDefault("scoring.workers", 4)
	viper.SetDefault("scoring.rate-limit-rps", 0)
	viper.SetDefault("scoring.request-timeout", 30*time.Second)

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("ai.max-reasoning-length", 400)
}

func initConfig() {
	// A missing .env is fine; the process environment is used as is.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless given explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, fmt.Errorf("config is empty")
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	return config, nil
}

func newLogger() *zap.Logger {
	logger, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return logger
}
