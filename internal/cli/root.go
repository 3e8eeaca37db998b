// Package cli wires the guardian commands: run, allow, prune, policy,
// receipts, verify, watch.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/policy"
	"github.com/RazorglintLabs/command-guardian/internal/receipt"
	"github.com/RazorglintLabs/command-guardian/internal/token"
)

var (
	flagAuditDir string
	flagTokens   string
	flagPolicy   string
)

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "A seatbelt for your terminal",
	Long: "Command Guardian intercepts shell commands, classifies their intent,\n" +
		"applies a deny-by-default policy, and records every decision in a\n" +
		"tamper-evident receipt chain.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAuditDir, "audit-dir", "", "Receipt directory (default: ~/.command-guardian/audit)")
	rootCmd.PersistentFlags().StringVar(&flagTokens, "tokens", "", "Token file (default: ~/.command-guardian/tokens.json)")
	rootCmd.PersistentFlags().StringVar(&flagPolicy, "policy", "", "Policy extension YAML (default: ~/.command-guardian/policy.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func auditDir() string {
	if flagAuditDir != "" {
		return flagAuditDir
	}
	return receipt.DefaultDir()
}

func tokenPath() string {
	if flagTokens != "" {
		return flagTokens
	}
	return token.DefaultPath()
}

func newEngine() (*policy.Engine, error) {
	cfg, err := policy.LoadConfig(flagPolicy)
	if err != nil {
		return nil, err
	}
	engine, err := policy.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid policy config: %w", err)
	}
	return engine, nil
}
