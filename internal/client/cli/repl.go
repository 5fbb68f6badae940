package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// runREPL reads lines from scanner and hands each one to dispatch as an
// argument list. The loop ends on EOF, "exit" or "quit".
//
// The command set is the same as on the command line, so a line such as
//
//	history --page 2
//
// behaves exactly like `leftoverchef history --page 2`. Errors are printed
// and the loop carries on. "shell" is refused inside the shell.
func runREPL(ctx context.Context, dispatch func(context.Context, []string) error, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("lc%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "shell":
			printlnFn("Already in the shell")
			continue
		}

		if err := dispatch(ctx, parts); err != nil {
			printlnFn("Error:", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
