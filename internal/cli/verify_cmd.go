package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/receipt"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit receipt chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := receipt.NewLog(auditDir()).Verify()
		if err != nil {
			return err
		}
		if result.OK {
			fmt.Printf("%s  (%d records)\n", styleAllow.Render("✔ VERIFIED"), result.Total)
			return nil
		}
		fmt.Fprintf(os.Stderr, "%s  at record index %d\n", styleDeny.Render("✘ FAILED"), result.FailedIndex)
		fmt.Fprintf(os.Stderr, "  Reason: %s\n", result.FailedReason)
		os.Exit(1)
		return nil
	},
}
