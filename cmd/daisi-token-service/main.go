package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/daisi-token-service/internal/bootstrap"
)

func main() {
	// Root context for the application lifecycle; config reload and other
	// background goroutines stop when it is cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the application through the Wire-generated injector.
	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// A very basic log if bootstrap fails, as the main logger isn't available.
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	// Ensure resources are released on exit (logger sync, Redis and NATS close).
	defer cleanup()

	// Run executes the startup initializer sequence and only then starts
	// serving. A startup failure must abort the process: serving with
	// incomplete initialization is worse than not serving at all.
	if err := app.Run(ctx); err != nil {
		fmt.Printf("Application run failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	fmt.Println("Application exited gracefully.")
}
