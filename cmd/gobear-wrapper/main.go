// gobear-wrapper stands in for a compiler during a wrapper session.
// Link it into the wrapper directory under each compiler's name (cc,
// c++, gcc, clang, ...).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gobear/internal/intercept"
	"gobear/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)

	code, err := intercept.Wrap(ctx, os.Args, util.NewLogger(1))
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gobear-wrapper: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}
