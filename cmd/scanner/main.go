package main

import (
	"context"

	"packtrack/internal/client/cli"
	"packtrack/internal/client/config"
)

func main() {

	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)

	app.Run(context.Background())

}
