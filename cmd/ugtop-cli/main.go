package main

import (
	"context"

	"ugtop-backend/cmd/ugtop-cli/commands"
	"ugtop-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "ugtop-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
