package main

import (
	"gameinsights-backend/cmd/gameinsights-cli/commands"
	"gameinsights-backend/lib/serviceutil"
	"gameinsights-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	_, err := telemetry.SetupFromEnv(ctx, "gameinsights-cli")
	if err != nil {
		serviceutil.Fatal("failed to set up telemetry", err)
	}
	telemetry.InitSlog(true)

	commands.ExecuteContext(ctx)
}
