package main

import (
	"steamharvest-backend/cmd/steamharvest/commands"
	"steamharvest-backend/lib/serviceutil"
	"steamharvest-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "steamharvest")
	telemetry.InitSlog(false)
	commands.ExecuteContext(ctx)
}
