package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/gophbook/internal/server"
	"github.com/dmitrijs2005/gophbook/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("gophbook: %v", err)
	}

	app.Run(context.Background())
}
