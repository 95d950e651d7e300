package main

import (
	"context"

	"karmagrab/cmd/karmagrab/commands"
	"karmagrab/pkg/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
