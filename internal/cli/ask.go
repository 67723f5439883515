package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"modernstack.dev/ragapi/internal/core"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question answered from the owner's documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	question := strings.Join(args, " ")

	if err := ensureServices(cmd.Context()); err != nil {
		return err
	}

	stream, err := chatService.Respond(cmd.Context(), ownerID, []core.ConversationTurn{
		{Role: core.RoleUser, Content: question},
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	for {
		tok, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(out)
			return fmt.Errorf("answer interrupted: %w", err)
		}
		fmt.Fprint(out, tok)
	}
	fmt.Fprintln(out)
	return nil
}
