package main

import (
	"context"
	"log"

	"github.com/Tairs07/Media/internal/bootstrap"
	"github.com/Tairs07/Media/internal/config"
	"github.com/Tairs07/Media/internal/server"
	"github.com/Tairs07/Media/internal/tracer"
	"github.com/Tairs07/Media/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Thumbnail Consumer...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize & Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
