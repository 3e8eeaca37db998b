package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/RazorglintLabs/command-guardian/internal/classify"
)

// affirmative is the only input that authorizes a risky command.
const affirmative = "ALLOW"

// InteractiveConfirm returns a ConfirmFunc that prompts on out and
// reads one line from in. Only the exact affirmative token authorizes;
// EOF, cancellation, or any other input denies.
func InteractiveConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, intent classify.Intent, command string) bool {
		fmt.Fprintf(out, "\nThis is risky (intent=%s).\n", intent)
		fmt.Fprintf(out, "  Command: %s\n", command)
		fmt.Fprintf(out, "  Type %s to proceed: ", affirmative)

		type answer struct {
			line string
			err  error
		}
		ch := make(chan answer, 1)
		go func() {
			line, err := reader.ReadString('\n')
			ch <- answer{line, err}
		}()

		// The blocked read cannot be unblocked on cancellation; the
		// goroutine is abandoned and the denial stands even if an
		// answer arrives later.
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return false
		case a := <-ch:
			if a.err != nil && a.line == "" {
				return false
			}
			return strings.TrimSpace(a.line) == affirmative
		}
	}
}
