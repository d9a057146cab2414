package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nano-perplexity/internal/agent/agent"
	"nano-perplexity/internal/agent/config"
	"nano-perplexity/internal/report"
	"nano-perplexity/internal/search"
	"nano-perplexity/internal/webpage"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const maxStdinSize = 64 * 1024

var ErrStdinTooLarge = errors.New("stdin query too large (max 64KB)")

type rootOptions struct {
	query       string
	outputDir   string
	engine      string
	printAnswer bool
	debug       bool
}

func newRootCmd(log *logrus.Logger) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "nanoperplexity [query]",
		Short: "Answer a question with cited web sources",
		Long: `nanoperplexity decides whether a query needs a web search, scrapes the top
results and asks an OpenAI-compatible model (LlamaEdge by default) for an
answer with citations. The answer is saved as "<query>.md".

The backend is configured with OPENAI_BASE_URL, LLM_MODEL and OPENAI_API_KEY.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, log, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "query to answer instead of prompting for one")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for the markdown answer (default $OUTPUT_DIR or .)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "search engine: google or duckduckgo (default $SEARCH_ENGINE or google)")
	cmd.Flags().BoolVarP(&opts.printAnswer, "print", "p", false, "also print the markdown answer to stdout")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	return cmd
}

func run(cmd *cobra.Command, log *logrus.Logger, opts *rootOptions, args []string) error {
	cfg, err := config.NewConfig(log)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.SetLevel(cfg.Output.LogLevel)
	if opts.debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if opts.engine != "" {
		cfg.Search.Engine = opts.engine
	}

	query, err := resolveQuery(args, opts.query, cmd.InOrStdin(), cmd.OutOrStdout(), isTerminal)
	if err != nil {
		return err
	}

	runLog := log.WithField("run_id", uuid.NewString())
	runLog.WithFields(logrus.Fields{
		"base_url": cfg.OpenAI.BaseURL,
		"model":    cfg.OpenAI.Model,
		"engine":   cfg.Search.Engine,
	}).Debug("configuration loaded")

	searcher, err := search.New(cfg.Search.Engine, nil, runLog)
	if err != nil {
		return err
	}
	fetcher := webpage.NewFetcher(runLog,
		webpage.WithTimeLimit(cfg.Search.TimeLimit),
		webpage.WithTotalTimeout(cfg.Search.TotalTimeout),
	)

	perplexity, err := agent.NewAgent(
		agent.WithLLMConfig(cfg.LLMConfig()),
		agent.WithSearcher(searcher),
		agent.WithFetcher(fetcher),
		agent.WithLogger(runLog),
		agent.WithNumResults(cfg.Search.NumResults),
		agent.WithMaxContent(cfg.Search.MaxContent),
	)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	result, err := perplexity.Run(cmd.Context(), query)
	if err != nil {
		return err
	}

	content := report.Render(result.Query, result.Answer, result.SourceURLs())
	path, err := report.Save(cfg.Output.Dir, result.Query, content)
	if err != nil {
		return err
	}
	runLog.WithFields(logrus.Fields{"path": path, "sources": len(result.Sources)}).Info("answer saved")

	if opts.printAnswer {
		fmt.Fprintln(cmd.OutOrStdout(), content)
	}
	return nil
}

// resolveQuery takes the query from the positional argument, the --query
// flag, piped stdin or an interactive prompt, in that order.
func resolveQuery(args []string, flagQuery string, in io.Reader, prompt io.Writer, interactive func(io.Reader) bool) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if strings.TrimSpace(flagQuery) != "" {
		return strings.TrimSpace(flagQuery), nil
	}

	if interactive(in) {
		fmt.Fprint(prompt, "Enter your query: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return nonEmpty(line)
	}

	data, err := io.ReadAll(io.LimitReader(in, maxStdinSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > maxStdinSize {
		return "", ErrStdinTooLarge
	}
	return nonEmpty(string(data))
}

func nonEmpty(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", agent.ErrEmptyQuery
	}
	return query, nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
