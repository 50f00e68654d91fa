package main

import (
	"context"
	"toplogger-backend/cmd/toplogger-cli/commands"
	"toplogger-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "toplogger-cli")
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
