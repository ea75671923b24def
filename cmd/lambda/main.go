package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"openrouter-chat/handler"
	"openrouter-chat/internal/config"
	"openrouter-chat/internal/integrations/openrouter"
	"openrouter-chat/internal/integrations/paramstore"
	"openrouter-chat/internal/logger"
	"openrouter-chat/internal/repository"
	"openrouter-chat/internal/usecase"
)

const apiKeyParamName = "openrouter-api-key"

func main() {
	ctx := context.Background()
	log := logger.New(logger.WithJSON(true))

	// ---- Configuration (read only here) ----
	maxPromptLen := envInt("MAX_PROMPT_LENGTH", 0)

	v, err := config.NewViper("")
	if err != nil {
		log.Error("failed to read configuration", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load(v)
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		log = logger.New(logger.WithJSON(true), logger.WithLevel(level))
	}
	keyParam, err := apiKeyParameter(cfg, os.Getenv("PARAM_PREFIX"))
	if err != nil {
		log.Error("no API key parameter configured", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		log.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	var recorder usecase.Recorder
	if cfg.TranscriptTable != "" {
		store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.TranscriptTable)
		if err != nil {
			log.Error("failed to create transcript store", "err", err)
			os.Exit(1)
		}
		recorder = store
	}

	client, err := openrouter.NewClient(
		openrouter.ParamStoreKey{Getter: ssmClient, Name: keyParam},
		openrouter.WithBaseURL(cfg.BaseURL),
		openrouter.WithTimeout(cfg.Timeout),
		openrouter.WithAttribution(cfg.Referer, cfg.Title),
		openrouter.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to create OpenRouter client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	svc, err := usecase.NewCompletionService(client, recorder, log, usecase.Settings{
		Model:           cfg.Model,
		SystemPrompt:    cfg.SystemPrompt,
		Temperature:     cfg.Temperature,
		MaxPromptLength: maxPromptLen,
	})
	if err != nil {
		log.Error("failed to create completion service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(svc, log)
	if err != nil {
		log.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// apiKeyParameter returns OPENROUTER_API_KEY_PARAM when set, otherwise the
// key's conventional name under PARAM_PREFIX.
func apiKeyParameter(cfg config.Config, paramPrefix string) (string, error) {
	if cfg.APIKeyParam != "" {
		return cfg.APIKeyParam, nil
	}
	if strings.TrimSpace(paramPrefix) == "" {
		return "", errors.New("set OPENROUTER_API_KEY_PARAM or PARAM_PREFIX")
	}
	return paramstore.Join(paramPrefix, apiKeyParamName), nil
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
