package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/receipt"
	"github.com/RazorglintLabs/command-guardian/internal/runner"
	"github.com/RazorglintLabs/command-guardian/internal/token"
)

// exitBlocked signals a re-classification hard block. Deliberately
// distinct from the plain denial exit code so wrappers can tell a
// bypass attempt from a routine deny.
const exitBlocked = 77

var (
	runNonInteractive bool
	runTimeout        time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNonInteractive, "non-interactive", false, "Never prompt; deny risky commands without a token")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", runner.DefaultTimeout, "Execution timeout ceiling")
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command through enforcement",
	Long: "Classifies the command, evaluates policy, resolves authorization,\n" +
		"re-checks the command immediately before execution, and writes a\n" +
		"receipt for the decision. Exit code 1 means denied; 77 means the\n" +
		"re-classification gate caught a hard block.",
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	command := strings.Join(args, " ")

	engine, err := newEngine()
	if err != nil {
		return err
	}

	r := runner.New(engine, token.NewStore(tokenPath()), receipt.NewLog(auditDir()))
	r.SetExecutor(&runner.ShellExecutor{Timeout: runTimeout})
	if !runNonInteractive && isatty.IsTerminal(os.Stdin.Fd()) {
		r.Confirm = runner.InteractiveConfirm(os.Stdin, os.Stderr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := r.Run(ctx, command)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case runner.Blocked:
		fmt.Fprintf(os.Stderr, "%s  intent=%s\n", styleDeny.Render("✘ EXECUTION BLOCKED"), result.Intent)
		fmt.Fprintf(os.Stderr, "  %s\n", result.Reason)
		fmt.Fprintln(os.Stderr, "  The command was re-evaluated before execution and matched an")
		fmt.Fprintln(os.Stderr, "  unconditional block rule. This may indicate a bypass attempt.")
		if result.Receipt != nil {
			fmt.Fprintf(os.Stderr, "  Receipt: %s\n", styleDim.Render(short(result.Receipt.Hash)))
		}
		os.Exit(exitBlocked)

	case runner.Denied:
		fmt.Fprintf(os.Stderr, "%s  intent=%s\n", styleDeny.Render("✘ DENIED"), result.Intent)
		fmt.Fprintf(os.Stderr, "  Reason: %s\n", result.Reason)
		if result.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "  %s %s\n", styleWarn.Render("Suggestion:"), result.Suggestion)
		}
		if result.Receipt != nil {
			fmt.Fprintf(os.Stderr, "  Receipt: %s\n", styleDim.Render(short(result.Receipt.Hash)))
		}
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%s  intent=%s\n", styleAllow.Render("✔ ALLOWED"), result.Intent)
	if result.Output != "" {
		fmt.Print(result.Output)
	}
	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}
