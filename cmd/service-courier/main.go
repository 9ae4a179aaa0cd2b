package main

import (
	"context"
	"os/signal"
	"syscall"

	"parcelflow/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container := app.NewContainerBuilder().MustBuildCourierAPI(ctx)
	app.MustRun(container)
}
