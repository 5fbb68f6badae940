package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/leftoverchef/internal/logging"
	"github.com/dmitrijs2005/leftoverchef/internal/server"
	"github.com/dmitrijs2005/leftoverchef/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
