package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/abdnh/anki-copycat-importer/internal/auth"
)

func newTokenCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "token [token]",
		Short: "Print an API token and the bcrypt hash to set as API_TOKEN",
		Long: "Without an argument a random token is generated. Either the token or its hash " +
			"can be configured as API_TOKEN; clients always send the token.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token, hash string
			var err error
			if len(args) == 1 {
				token = args[0]
				hash, err = auth.HashToken(token, cost)
			} else {
				token, hash, err = auth.GenerateToken(cost)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token:     %s\n", token)
			fmt.Fprintf(out, "API_TOKEN: %s\n", hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
