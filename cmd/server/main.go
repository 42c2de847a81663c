package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/labandina/internal/logging"
	"github.com/dmitrijs2005/labandina/internal/server"
	"github.com/dmitrijs2005/labandina/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
