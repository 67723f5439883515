// Package cli implements ragctl, the command-line client for the ingestion
// and chat pipelines.
package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"modernstack.dev/ragapi/internal/app"
	"modernstack.dev/ragapi/internal/config"
	"modernstack.dev/ragapi/internal/core"
)

// Ingester runs the document ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, ownerID, title, content string) (*core.IngestResult, error)
}

// Responder runs the retrieval-augmented chat pipeline.
type Responder interface {
	Respond(ctx context.Context, ownerID string, history []core.ConversationTurn) (core.TokenStream, error)
}

var (
	configPath string
	ownerID    string

	ingestService Ingester
	chatService   Responder
	cleanup       func()
)

var errOwnerRequired = errors.New("--owner is required")

var rootCmd = &cobra.Command{
	Use:          "ragctl",
	Short:        "Ingest documents and ask grounded questions",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "principal id that owns documents and scopes retrieval")
}

// SetServices injects pipelines, bypassing configuration-based wiring.
func SetServices(ingest Ingester, chat Responder) {
	ingestService = ingest
	chatService = chat
}

// ensureServices wires the pipelines from configuration unless they were
// injected.
func ensureServices(ctx context.Context) error {
	if ingestService != nil && chatService != nil {
		return nil
	}
	config.LoadConfig(configPath)

	a, err := app.New(ctx, &config.AppConfig)
	if err != nil {
		return err
	}
	ingestService = a.IngestService
	chatService = a.ChatService
	cleanup = a.Close
	return nil
}

func requireOwner() error {
	if ownerID == "" {
		return errOwnerRequired
	}
	return nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if cleanup != nil {
			cleanup()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
