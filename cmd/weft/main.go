package main

import (
	"fmt"
	"os"
	"unicode"

	"github.com/weftsh/weft/internal/cli"
	"github.com/weftsh/weft/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.Execute(); err != nil {
		if !cli.Silent(err) {
			// Print error using unified exit format
			errMsg := err.Error()
			if errMsg != "" {
				runes := []rune(errMsg)
				runes[0] = unicode.ToUpper(runes[0])
				errMsg = string(runes)
			}
			fmt.Fprintln(os.Stderr, tui.ExitError(errMsg))
		}
		return 1
	}
	return 0
}
