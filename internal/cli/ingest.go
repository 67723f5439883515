package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"modernstack.dev/ragapi/internal/core"
)

var ingestTitle string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a text document",
	Long: `Stores the file as a document owned by --owner, splits it into
overlapping chunks and indexes them for retrieval.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (defaults to the file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	title := ingestTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := ensureServices(cmd.Context()); err != nil {
		return err
	}

	res, err := ingestService.Ingest(cmd.Context(), ownerID, title, string(content))
	if err != nil {
		var partial *core.PartialIngestionError
		if errors.As(err, &partial) {
			return fmt.Errorf("document %s was saved but not indexed: %w", partial.DocumentID, err)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested %q as %s (%d chunks)\n", title, res.DocumentID, res.ChunkCount)
	return nil
}
