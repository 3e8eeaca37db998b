package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RazorglintLabs/command-guardian/internal/receipt"
	"github.com/RazorglintLabs/command-guardian/internal/watch"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the audit directory and re-verify the chain on changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := auditDir()
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
		log := receipt.NewLog(dir)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		fmt.Fprintf(os.Stderr, "Watching %s\n", dir)
		monitor := watch.NewMonitor(log, func(result receipt.VerifyResult) {
			ts := time.Now().UTC().Format(time.RFC3339)
			if result.OK {
				fmt.Fprintf(os.Stderr, "%s %s (%d records)\n", styleDim.Render(ts), styleAllow.Render("chain ok"), result.Total)
				return
			}
			fmt.Fprintf(os.Stderr, "%s %s at record index %d: %s\n",
				styleDim.Render(ts), styleDeny.Render("TAMPER DETECTED"), result.FailedIndex, result.FailedReason)
		})

		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
