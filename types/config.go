/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	Project   ProjectConfig   `mapstructure:"project" validate:"required"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" validate:"required"`
	Linking   LinkingConfig   `mapstructure:"linking" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"omitempty"`
	Server    ServerConfig    `mapstructure:"server" validate:"omitempty"`
}

// ProjectConfig holds project-related settings
type ProjectConfig struct {
	RootDir       string `mapstructure:"rootDir" validate:"required"`
	OutputLogPath string `mapstructure:"outputLogPath" validate:"omitempty"`
}

// KnowledgeConfig holds knowledge store configuration
type KnowledgeConfig struct {
	// Backend selects the entity store implementation.
	Backend string `mapstructure:"backend" validate:"required,oneof=file sqlite"`
	// File is the YAML snapshot path used by the file backend.
	File string `mapstructure:"file" validate:"omitempty"`
	// Database is the sqlite path used by the sqlite backend.
	Database string `mapstructure:"database" validate:"omitempty"`
}

// LinkingConfig holds the scoring weights, decision thresholds, and
// candidate generation options for the linking engine.
type LinkingConfig struct {
	Weights    WeightsConfig    `mapstructure:"weights" validate:"required"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds" validate:"required"`
	Candidates CandidatesConfig `mapstructure:"candidates" validate:"required"`
	// EnableExternalFallback turns the LLM disambiguation step on or off.
	EnableExternalFallback bool `mapstructure:"enableExternalFallback"`
	// AuditCandidates is how many top scored candidates are retained on each result.
	AuditCandidates int `mapstructure:"auditCandidates" validate:"omitempty,min=1,max=20"`
}

// WeightsConfig holds the five scoring factor weights.
// The engine rejects weight sets that do not sum to 1.0 (±1e-3).
type WeightsConfig struct {
	NameSimilarity    float64 `mapstructure:"nameSimilarity" validate:"min=0,max=1"`
	TypeCompatibility float64 `mapstructure:"typeCompatibility" validate:"min=0,max=1"`
	ContextRelevance  float64 `mapstructure:"contextRelevance" validate:"min=0,max=1"`
	CoOccurrence      float64 `mapstructure:"coOccurrence" validate:"min=0,max=1"`
	Popularity        float64 `mapstructure:"popularity" validate:"min=0,max=1"`
}

// ThresholdsConfig holds the confidence bands for the decision engine.
type ThresholdsConfig struct {
	MinAcceptConfidence       float64 `mapstructure:"minAcceptConfidence" validate:"min=0,max=1"`
	ExternalFallbackThreshold float64 `mapstructure:"externalFallbackThreshold" validate:"min=0,max=1"`
	ReviewLowerBound          float64 `mapstructure:"reviewLowerBound" validate:"min=0,max=1"`
	ReviewUpperBound          float64 `mapstructure:"reviewUpperBound" validate:"min=0,max=1"`
	AmbiguityGap              float64 `mapstructure:"ambiguityGap" validate:"min=0,max=1"`
}

// CandidatesConfig holds candidate generation options.
type CandidatesConfig struct {
	MaxCandidates   int     `mapstructure:"maxCandidates" validate:"omitempty,min=1,max=100"`
	MinSimilarity   float64 `mapstructure:"minSimilarity" validate:"min=0,max=1"`
	MaxEditDistance int     `mapstructure:"maxEditDistance" validate:"omitempty,min=0,max=10"`
	IncludeAliases  bool    `mapstructure:"includeAliases"`
	UseFuzzy        bool    `mapstructure:"useFuzzy"`
	FilterByType    bool    `mapstructure:"filterByType"`
}

// LLMConfig holds configuration for the external disambiguator model
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	Model    string `mapstructure:"model" validate:"omitempty,min=1"`
	APIKey   string `mapstructure:"apiKey" validate:"omitempty,min=1"`
	BaseURL  string `mapstructure:"baseURL" validate:"omitempty,url"`
	// RequestTimeoutSeconds controls the timeout for disambiguation calls
	RequestTimeoutSeconds int `mapstructure:"requestTimeoutSeconds" validate:"omitempty,min=1,max=600"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}
