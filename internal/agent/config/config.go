package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nano-perplexity/internal/agent/llm"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "http://127.0.0.1:8080/v1"

var (
	ErrMissingEnv = errors.New("environment variable is not set")
	ErrInvalidEnv = errors.New("environment variable is invalid")
)

type Config struct {
	OpenAI *OpenAIConfig
	Search *SearchConfig
	Output *OutputConfig
}

type OpenAIConfig struct {
	APIKey           string
	BaseURL          string
	BaseURLDefaulted bool
	Model            string
	MaxTokens        int
	Temperature      float64
	Timeout          time.Duration
}

type SearchConfig struct {
	Engine       string
	NumResults   int
	TimeLimit    time.Duration
	TotalTimeout time.Duration
	MaxContent   int
}

type OutputConfig struct {
	Dir      string
	LogLevel logrus.Level
}

func NewConfig(log logrus.FieldLogger) (*Config, error) {
	// Load environment variables from .env file; a missing file is fine,
	// the variables may come from the process environment.
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug("no .env file loaded")
	}

	var errs []error
	apiKey, err := getEnvStr("OPENAI_API_KEY", "")
	errs = append(errs, err)
	model, err := getEnvStr("LLM_MODEL", "")
	errs = append(errs, err)
	baseURL, _ := getEnvStr("OPENAI_BASE_URL", DefaultBaseURL)
	maxTokens, err := getEnvInt("MAX_TOKENS", 1000)
	errs = append(errs, err)
	temperature, err := getEnvFloat("OPENAI_TEMPERATURE", 0.7)
	errs = append(errs, err)
	timeout, err := getEnvSeconds("OPENAI_TIMEOUT_SECONDS", 60)
	errs = append(errs, err)

	numSearch, err := getEnvInt("NUM_SEARCH", 10)
	errs = append(errs, err)
	timeLimit, err := getEnvSeconds("SEARCH_TIME_LIMIT", 3)
	errs = append(errs, err)
	totalTimeout, err := getEnvSeconds("TOTAL_TIMEOUT", 6)
	errs = append(errs, err)
	maxContent, err := getEnvInt("MAX_CONTENT", 500)
	errs = append(errs, err)
	engine, _ := getEnvStr("SEARCH_ENGINE", "google")

	levelName, _ := getEnvStr("LOG_LEVEL", "info")
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: name = LOG_LEVEL, value = %s", ErrInvalidEnv, levelName))
	}
	outputDir, _ := getEnvStr("OUTPUT_DIR", ".")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	baseURLDefaulted := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")) == ""
	if baseURLDefaulted {
		log.Warnf("OPENAI_BASE_URL defaults to %s, set the OPENAI_BASE_URL environment variable to change it", DefaultBaseURL)
	}

	return &Config{
		OpenAI: &OpenAIConfig{
			APIKey:           apiKey,
			BaseURL:          baseURL,
			BaseURLDefaulted: baseURLDefaulted,
			Model:            model,
			MaxTokens:        maxTokens,
			Temperature:      temperature,
			Timeout:          timeout,
		},
		Search: &SearchConfig{
			Engine:       strings.ToLower(engine),
			NumResults:   numSearch,
			TimeLimit:    timeLimit,
			TotalTimeout: totalTimeout,
			MaxContent:   maxContent,
		},
		Output: &OutputConfig{
			Dir:      outputDir,
			LogLevel: level,
		},
	}, nil
}

func (c *Config) LLMConfig() llm.LLMConfig {
	return llm.LLMConfig{
		Type:        llm.LLMTypeOpenAI,
		BaseURL:     c.OpenAI.BaseURL,
		APIKey:      c.OpenAI.APIKey,
		Model:       c.OpenAI.Model,
		Temperature: c.OpenAI.Temperature,
		MaxTokens:   c.OpenAI.MaxTokens,
		Timeout:     c.OpenAI.Timeout,
	}
}

// getEnvStr returns the value of an environment variable or a default value if it's not set
func getEnvStr(envVar string, defaultValue string) (string, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		if defaultValue == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingEnv, envVar)
		}
		return defaultValue, nil
	}
	return v, nil
}

// getEnvInt returns the value of an environment variable as a positive integer or a default value if it's not set
func getEnvInt(envVar string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return defaultValue, nil
	}

	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("%w: must be a positive integer: name = %s, value = %s", ErrInvalidEnv, envVar, v)
	}
	return i, nil
}

// getEnvFloat returns the value of an environment variable as a float64 or a default value if it's not set
func getEnvFloat(envVar string, defaultValue float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return defaultValue, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%w: must be a non-negative float: name = %s, value = %s", ErrInvalidEnv, envVar, v)
	}
	return f, nil
}

func getEnvSeconds(envVar string, defaultSeconds int) (time.Duration, error) {
	s, err := getEnvInt(envVar, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(s) * time.Second, nil
}
