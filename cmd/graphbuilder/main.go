// Command graphbuilder validates agent workflow graphs and generates
// LangGraph program skeletons from them.
//
// Usage:
//
//	graphbuilder validate graph.yaml
//	graphbuilder generate graph.yaml --target python,typescript --out ./gen
//	graphbuilder templates new support-copilot > graph.yaml
//	graphbuilder watch graph.yaml --out ./gen
//	graphbuilder snapshots list
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
