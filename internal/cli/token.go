package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// TokenOutput is the result of the token command.
type TokenOutput struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
}

// NewTokenCommand creates the token command, which signs a bearer token for
// the HTTP API with the configured secret.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Issue a bearer token for a user",
		Example:       `  ledgerctl token --user 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return NewExitError(ExitUsage, "--user must be a positive integer")
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			token, err := a.Tokens.Generate(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			out := TokenOutput{UserID: userID, Token: token}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintln(w, out.Token)
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id the token is issued for (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
