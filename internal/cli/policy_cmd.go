package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/classify"
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Policy commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPolicySummary()
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a human-readable policy summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPolicySummary()
	},
}

func printPolicySummary() error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(styleHeader.Render("Command Guardian — Policy Summary"))
	fmt.Println()

	fmt.Println(styleBold.Render("Supported Intents:"))
	for _, intent := range classify.AllIntents {
		fmt.Printf("  • %s\n", intent)
	}

	fmt.Println()
	fmt.Println(styleDeny.Render("Always-Block Rules:"))
	for _, desc := range engine.BlockRuleDescriptions() {
		fmt.Printf("  ✘ %s\n", desc)
	}

	fmt.Println()
	fmt.Println(styleWarn.Render("Risky Intents (require authorization):"))
	for _, intent := range engine.RiskyIntents() {
		fmt.Printf("  ⚠ %s\n", intent)
	}

	fmt.Println()
	fmt.Printf("%s %s\n", styleBold.Render("Receipt location:"), auditDir())
	fmt.Println()
	return nil
}
