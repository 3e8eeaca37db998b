package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/policy"
	"github.com/RazorglintLabs/command-guardian/internal/receipt"
)

var receiptsN int

func init() {
	rootCmd.AddCommand(receiptsCmd)
	receiptsCmd.AddCommand(receiptsTailCmd)
	receiptsCmd.PersistentFlags().IntVarP(&receiptsN, "n", "n", 20, "Number of receipts to show")
}

var receiptsCmd = &cobra.Command{
	Use:   "receipts",
	Short: "Audit receipt commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printReceipts(receiptsN)
	},
}

var receiptsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the last N audit receipts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printReceipts(receiptsN)
	},
}

func printReceipts(n int) error {
	recs, err := receipt.NewLog(auditDir()).Tail(n)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println(styleDim.Render("No receipts found."))
		return nil
	}

	fmt.Println(styleBold.Render(fmt.Sprintf("Last %d receipts", len(recs))))
	for _, r := range recs {
		decision := styleDeny.Render(r.Decision)
		if r.Decision == string(policy.Allow) {
			decision = styleAllow.Render(r.Decision)
		}
		fmt.Printf("%s  %-20s %s  %-50s %s\n",
			styleDim.Render(clip(r.Timestamp, 19)),
			r.Intent,
			decision,
			clip(r.Reason, 50),
			styleDim.Render(short(r.Hash)),
		)
	}
	return nil
}
