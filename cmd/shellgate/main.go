package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/shellgate/internal/infrastructure/cli"
)

func main() {
	ctx := context.Background()
	opts := cli.Options{
		Verbose: isVerbose(),
		Model:   os.Getenv("SHELLGATE_MODEL"),
	}

	root, cleanup, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	err = root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func isVerbose() bool {
	if strings.EqualFold(os.Getenv("SHELLGATE_DEBUG"), "1") || strings.EqualFold(os.Getenv("SHELLGATE_DEBUG"), "true") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if arg == "--verbose" || arg == "-v" {
			return true
		}
	}
	return false
}
