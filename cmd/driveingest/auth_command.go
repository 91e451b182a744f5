package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driveingest/internal/drive"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Drive and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := drive.Authorize(cmd.Context(), cfg.Drive, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.Drive.TokenFile)
			return nil
		},
	}
}
