package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"modernstack.dev/ragapi/internal/auth"
	"modernstack.dev/ragapi/internal/config"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development JWT for --owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireOwner(); err != nil {
			return err
		}
		if config.AppConfig.JWTSecret == "" {
			secret, err := config.LoadSigningSecret(configPath)
			if err != nil {
				return err
			}
			config.AppConfig.JWTSecret = secret
		}

		token, err := auth.GenerateJWT(ownerID, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
