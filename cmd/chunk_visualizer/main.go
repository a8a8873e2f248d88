package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chunk_visualizer/internal/app"
	"chunk_visualizer/internal/config"
	"chunk_visualizer/internal/logger"
	"chunk_visualizer/internal/render"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// flag name -> env variable parsed by config.Init
var envFlags = map[string]string{
	"chunker-url":    "CHUNKER_URL",
	"timeout":        "HTTP_TIMEOUT",
	"log-level":      "LOG_LEVEL",
	"log-json":       "LOG_JSON",
	"token-encoding": "TOKEN_ENCODING",
	"ollama-url":     "OLLAMA_URL",
	"embed-model":    "OLLAMA_EMBED_MODEL",
	"top-k":          "TOP_K",
	"params":         "PARAMS_FILE",
	"output":         "OUTPUT",
}

type session struct {
	cfg config.Config
	log logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := createRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:   "chunk_visualizer",
		Short: "Explore RAG chunking strategies against a chunking service",
		Long: `chunk_visualizer uploads a PDF to a chunking service, runs one of its
strategies and shows the resulting chunks, sizes and overlaps.

Without a subcommand an interactive session is started on stdin.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(&s.cfg, s.log)
			if err != nil {
				return err
			}
			if err := a.Init(cmd.Context()); err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.String("chunker-url", "", "chunking service base URL (env CHUNKER_URL)")
	flags.Duration("timeout", 0, "per-request timeout (env HTTP_TIMEOUT)")
	flags.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	flags.Bool("log-json", false, "log as JSON (env LOG_JSON)")
	flags.String("token-encoding", "", "tiktoken encoding or 'words' (env TOKEN_ENCODING)")
	flags.String("ollama-url", "", "Ollama URL for the retrieval preview (env OLLAMA_URL)")
	flags.String("embed-model", "", "Ollama embedding model (env OLLAMA_EMBED_MODEL)")
	flags.Int("top-k", 0, "retrieval preview result count (env TOP_K)")
	flags.String("params", "", "YAML parameter preset (env PARAMS_FILE)")
	flags.String("output", "", "write a report after each chunk run, .md or .html (env OUTPUT)")
	flags.String("env-file", ".env", "optional .env file")

	root.AddCommand(createRunCommand(s), createStrategiesCommand(s))
	return root
}

func createRunCommand(s *session) *cobra.Command {
	var opts app.RunOptions

	cmd := &cobra.Command{
		Use:   "run <file.pdf>",
		Short: "Upload and chunk one PDF, print the result and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(&s.cfg, s.log)
			if err != nil {
				return err
			}
			if err := a.Init(cmd.Context()); err != nil {
				return err
			}
			opts.Path = args[0]
			if err := a.RunOnce(cmd.Context(), opts); err != nil {
				s.log.Error("run failed", "file", opts.Path, "err", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Strategy, "strategy", "s", "", "strategy name, default is the first one offered")
	cmd.Flags().StringArrayVar(&opts.Settings, "set", nil, "parameter as key=value, repeatable")
	return cmd
}

func createStrategiesCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the strategies offered by the chunking service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(&s.cfg, s.log)
			if err != nil {
				return err
			}
			ctrl := a.Controller()
			if err := ctrl.Initialize(cmd.Context()); err != nil {
				return err
			}
			st := ctrl.Snapshot()
			fmt.Fprint(cmd.OutOrStdout(), render.Strategies(st))
			fmt.Fprintf(cmd.OutOrStdout(), "default chunk_size=%d chunk_overlap=%d\n",
				st.Catalog.DefaultChunkSize, st.Catalog.DefaultChunkOverlap)
			return nil
		},
	}
}

// setup exports changed flags to env, loads .env without overriding them and
// parses the config.
func (s *session) setup(cmd *cobra.Command) error {
	for flag, key := range envFlags {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			os.Setenv(key, f.Value.String())
		}
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	_ = godotenv.Load(envFile)

	if err := config.Init(&s.cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s.log = logger.New(&logger.Config{
		Level:      s.cfg.LogLevel,
		JSON:       s.cfg.LogJSON,
		Output:     os.Stderr,
		TimeFormat: "15:04:05",
	})
	return nil
}
