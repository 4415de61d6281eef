// GoBear - generates a compilation database by watching a build.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gobear/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)

	code, err := cmd.Execute(ctx, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gobear: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}
