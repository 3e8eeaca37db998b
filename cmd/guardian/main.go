// guardian is a seatbelt for your terminal.
package main

import "github.com/RazorglintLabs/command-guardian/internal/cli"

func main() {
	cli.Execute()
}
