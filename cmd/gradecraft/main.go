package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/gradecraft/internal/app"
	"github.com/yungbote/gradecraft/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, app.New); err != nil {
		fmt.Fprintf(os.Stderr, "gradecraft: %v\n", err)
		os.Exit(1)
	}
}
