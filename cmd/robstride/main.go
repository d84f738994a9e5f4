package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/n2048-creative-technology/blender-robstride/cmd/robstride/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	cmd.Execute(ctx)
}
