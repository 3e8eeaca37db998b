package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/classify"
	"github.com/RazorglintLabs/command-guardian/internal/token"
)

var allowTTL time.Duration

func init() {
	rootCmd.AddCommand(allowCmd)
	rootCmd.AddCommand(pruneCmd)
	allowCmd.Flags().DurationVar(&allowTTL, "ttl", token.DefaultTTL, "Token time-to-live")
}

var allowCmd = &cobra.Command{
	Use:   "allow <intent>",
	Short: "Issue a short-lived authorization token for an intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !classify.Valid(name) {
			var valid []string
			for _, i := range classify.AllIntents {
				valid = append(valid, string(i))
			}
			return fmt.Errorf("unknown intent %q (valid: %s)", name, strings.Join(valid, ", "))
		}

		tok, err := token.NewStore(tokenPath()).Issue(classify.Intent(name), allowTTL)
		if err != nil {
			return err
		}

		fmt.Println(styleAllow.Render("Token issued"))
		fmt.Printf("  token_id     : %s\n", tok.TokenID)
		fmt.Printf("  intent       : %s\n", tok.Intent)
		fmt.Printf("  expires_at   : %s\n", tok.ExpiresAt)
		fmt.Printf("  decision_hash: %s\n", styleDim.Render(short(tok.DecisionHash)))
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired authorization tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := token.NewStore(tokenPath()).PruneExpired()
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d expired token(s).\n", removed)
		return nil
	},
}
