package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"

	"openrouter-chat/internal/config"
	"openrouter-chat/internal/integrations/openrouter"
	"openrouter-chat/internal/integrations/paramstore"
	"openrouter-chat/internal/logger"
	"openrouter-chat/internal/repository"
	"openrouter-chat/internal/usecase"
)

const defaultPrompt = "How are you doing?"

var errNoCredential = errors.New("no API key configured: set OPENROUTER_API_KEY or --api-key-param")

const rootLongDesc string = `Send a single chat completion request to OpenRouter and print the response.

The prompt is taken from the arguments; without arguments a short greeting is
sent. The API key is read from OPENROUTER_API_KEY or, when --api-key-param is
given, from that AWS SSM parameter. Logs go to stderr, the response to stdout.

Example:
  openrouter-chat
  openrouter-chat "Summarise the plot of Hamlet in one line"
  openrouter-chat --model openai/gpt-4o-mini --content "What is 2+2?"
  openrouter-chat --api-key-param /prod/openrouter-api-key --raw "hi"`

type rootCommander struct {
	configFile string
	raw        bool
	content    bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmder := &rootCommander{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "openrouter-chat [prompt...]",
		Short:         "Send one chat completion request to OpenRouter",
		Long:          rootLongDesc,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmder.raw && cmder.content {
				return errors.New("--raw and --content are mutually exclusive")
			}
			return cmder.run(cmd, args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.StringVar(&cmder.configFile, "config", "", "Config file (toml, yaml or json)")
	pf.String("base-url", config.DefaultBaseURL, "OpenRouter API base URL")
	pf.String("api-key-param", "", "SSM parameter holding the API key")
	pf.String("model", config.DefaultModel, "Model identifier")
	pf.String("system", "", "Optional system prompt")
	pf.String("temperature", "", "Sampling temperature in [0,2]")
	pf.Duration("timeout", config.DefaultTimeout, "Request timeout")
	pf.String("referer", "", "HTTP-Referer attribution header")
	pf.String("title", "", "X-Title attribution header")
	pf.String("transcript-table", "", "DynamoDB table recording exchanges")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text or json)")

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the response as compact JSON")
	cmd.Flags().BoolVar(&cmder.content, "content", false, "Print only the first choice's message content")

	cmd.AddCommand(newTranscriptCmd(cmder))
	return cmd
}

func (c *rootCommander) run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := c.setup(cmd)
	if err != nil {
		return err
	}

	keys, err := c.keySource(ctx, cfg)
	if err != nil {
		return err
	}

	var recorder usecase.Recorder
	if cfg.TranscriptTable != "" {
		store, err := c.transcriptStore(ctx, cfg.TranscriptTable)
		if err != nil {
			return err
		}
		recorder = store
	}

	client, err := openrouter.NewClient(keys,
		openrouter.WithBaseURL(cfg.BaseURL),
		openrouter.WithTimeout(cfg.Timeout),
		openrouter.WithAttribution(cfg.Referer, cfg.Title),
		openrouter.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("creating OpenRouter client: %w", err)
	}

	svc, err := usecase.NewCompletionService(client, recorder, log, usecase.Settings{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		return fmt.Errorf("creating completion service: %w", err)
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		prompt = defaultPrompt
	}

	out, err := svc.Complete(ctx, usecase.CompleteInput{Prompt: prompt})
	if err != nil {
		return err
	}

	switch {
	case c.raw:
		_, err = fmt.Fprintln(c.stdout, out.Response.String())
	case c.content:
		_, err = fmt.Fprintln(c.stdout, out.Response.Content())
	default:
		_, err = c.stdout.Write(out.Response.Pretty("    "))
	}
	return err
}

// setup resolves configuration and the logger shared by all subcommands.
func (c *rootCommander) setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	v, err := config.NewViper(c.configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(
		logger.WithWriter(c.stderr),
		logger.WithLevel(level),
		logger.WithJSON(cfg.Log.Format == "json"),
		logger.WithPrefix("openrouter-chat"),
	)
	return cfg, log, nil
}

func (c *rootCommander) keySource(ctx context.Context, cfg config.Config) (openrouter.KeySource, error) {
	if !cfg.HasCredential() {
		return nil, errNoCredential
	}
	if cfg.APIKey != "" {
		return openrouter.StaticKey(cfg.APIKey), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	store, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("creating SSM client: %w", err)
	}
	return openrouter.ParamStoreKey{Getter: store, Name: cfg.APIKeyParam}, nil
}

func (c *rootCommander) transcriptStore(ctx context.Context, table string) (*repository.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), table)
	if err != nil {
		return nil, fmt.Errorf("creating transcript store: %w", err)
	}
	return store, nil
}
