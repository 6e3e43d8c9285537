/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/josephgoksu/LinkWing/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = ".linkwing"
	envPrefix  = "LINKWING"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// validate is a single validator instance; it caches struct info.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// validateAppConfig performs validation on the AppConfig struct.
func validateAppConfig(config *types.AppConfig) error {
	return validate.Struct(config)
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// Load .env file first if present. Missing file is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix) // e.g., LINKWING_VERBOSE
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfgFileFlag := viper.GetString("config")

	// Project-local config lives under .linkwing/ next to the knowledge
	// base; fall back to home and cwd for a global config.
	projectConfigDir := viper.GetString("project.rootDir")
	if projectConfigDir == "" {
		projectConfigDir = ".linkwing"
	}

	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		if _, err := os.Stat(projectConfigDir); !os.IsNotExist(err) {
			viper.AddConfigPath(projectConfigDir)
			viper.SetConfigName(configName)
		} else {
			home, err := os.UserHomeDir()
			cobra.CheckErr(err)
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigName(configName)
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFileFlag != "" {
				fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFileFlag)
			} else if viper.GetBool("verbose") {
				fmt.Fprintln(os.Stderr, "No config file found. Using defaults and environment variables.")
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	setConfigDefaults()

	if err := viper.Unmarshal(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling config: %s\n", err)
		os.Exit(1)
	}

	if GlobalAppConfig.Project.RootDir == "" {
		GlobalAppConfig.Project.RootDir = viper.GetString("project.rootDir")
	}

	if err := validateAppConfig(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation error: %s\n", err)
		os.Exit(1)
	}

	setupLogging(GlobalAppConfig.Verbose)
}

func setConfigDefaults() {
	viper.SetDefault("project.rootDir", ".linkwing")
	viper.SetDefault("project.outputLogPath", "logs/linkwing.log")

	viper.SetDefault("knowledge.backend", "file")
	viper.SetDefault("knowledge.file", ".linkwing/knowledge.yaml")
	viper.SetDefault("knowledge.database", ".linkwing/linkwing.db")

	// Scoring weights; must sum to 1.0
	viper.SetDefault("linking.weights.nameSimilarity", 0.30)
	viper.SetDefault("linking.weights.typeCompatibility", 0.20)
	viper.SetDefault("linking.weights.contextRelevance", 0.20)
	viper.SetDefault("linking.weights.coOccurrence", 0.15)
	viper.SetDefault("linking.weights.popularity", 0.15)

	// Decision thresholds
	viper.SetDefault("linking.thresholds.minAcceptConfidence", 0.80)
	viper.SetDefault("linking.thresholds.externalFallbackThreshold", 0.50)
	viper.SetDefault("linking.thresholds.reviewLowerBound", 0.30)
	viper.SetDefault("linking.thresholds.reviewUpperBound", 0.70)
	viper.SetDefault("linking.thresholds.ambiguityGap", 0.15)

	// Candidate generation
	viper.SetDefault("linking.candidates.maxCandidates", 10)
	viper.SetDefault("linking.candidates.minSimilarity", 0.6)
	viper.SetDefault("linking.candidates.maxEditDistance", 3)
	viper.SetDefault("linking.candidates.includeAliases", true)
	viper.SetDefault("linking.candidates.useFuzzy", true)
	viper.SetDefault("linking.candidates.filterByType", true)

	viper.SetDefault("linking.enableExternalFallback", false)
	viper.SetDefault("linking.auditCandidates", 5)

	// Defaults for LLMConfig
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.requestTimeoutSeconds", 20)

	viper.SetDefault("server.port", 8080)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// GetConfig returns a pointer to the global types.AppConfig instance.
func GetConfig() *types.AppConfig {
	return &GlobalAppConfig
}
