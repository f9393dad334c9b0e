// Command argonaut runs the OpenAI-compatible gateway for the Argo
// inference API.
//
// Usage:
//
//	argonaut serve [--config path] [--port n] [--host addr]
//	argonaut config show [--config path]
//	argonaut config validate [--config path]
//
// Configuration is layered: built-in defaults, then a YAML config file
// (explicit --config, ARGONAUT_CONFIG, ./config.yaml, ~/.config/argonaut/
// config.yaml, /etc/argonaut/config.yaml), then ARGONAUT_* environment
// overrides.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/argonaut-dev/argonaut/pkg/argo"
	"github.com/argonaut-dev/argonaut/pkg/config"
	"github.com/argonaut-dev/argonaut/pkg/debug"
	"github.com/argonaut-dev/argonaut/pkg/engine"
	"github.com/argonaut-dev/argonaut/pkg/models"
	transporthttp "github.com/argonaut-dev/argonaut/pkg/transport/http"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "argonaut",
		Short:         "argonaut - OpenAI-compatible gateway for the Argo inference API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newConfigCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		cfgPath string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML configuration file")
	cmd.Flags().StringVar(&host, "host", "", "override listen host")
	cmd.Flags().IntVar(&port, "port", 0, "override listen port")
	return cmd
}

func serve(cfg *config.Config) error {
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	client := argo.NewClient(argo.ClientConfig{
		ChatURL:          cfg.Argo.ChatURL,
		StreamChatURL:    cfg.Argo.StreamChatURL,
		EmbeddingURL:     cfg.Argo.EmbeddingURL,
		ConnectTimeout:   cfg.Argo.ConnectTimeout,
		HeaderTimeout:    cfg.Argo.HeaderTimeout,
		RequestTimeout:   cfg.Argo.RequestTimeout,
		MaxRetries:       cfg.Argo.MaxRetries,
		MaxConns:         cfg.Argo.MaxConns,
		MaxResponseBytes: cfg.Engine.MaxResponseBytes,
	})
	defer client.Close()

	eng, err := engine.New(client, models.DefaultTable(), engine.Config{
		User:           cfg.Argo.User,
		PseudoStream:   cfg.Engine.PseudoStream,
		MaxStreamBytes: cfg.Engine.MaxResponseBytes,
		ProbeModel:     cfg.Engine.ProbeModel,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	slog.Info("gateway configured",
		slog.String("user", cfg.Argo.User),
		slog.String("chat_url", cfg.Argo.ChatURL),
		slog.Bool("pseudo_stream", cfg.Engine.PseudoStream))

	srv := transporthttp.NewServer(eng,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(slog.Default()),
	)
	return srv.ListenAndServe()
}

func newConfigCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML configuration file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, reporting all problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(cfgPath); err != nil {
				return err
			}
			fmt.Println("configuration is valid")
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}
