package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/surrealcatalog"
)

func main() {
	// SIGINT/SIGTERM stop the server gracefully and interrupt a reindex
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := surrealcatalog.Main(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
