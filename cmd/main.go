package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saeidalz13/armada-backend/api"
	"github.com/saeidalz13/armada-backend/db"
	"github.com/saeidalz13/armada-backend/db/sqlc"
	"github.com/saeidalz13/armada-backend/internal/config"
	"github.com/saeidalz13/armada-backend/internal/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	dbConn := db.MustConnectToDb(cfg.DatabaseDriver, cfg.DatabaseUrl)
	defer dbConn.Close()

	dbManager := sqlc.NewDbManager(sqlc.New(dbConn))

	publisher, err := events.NewPublisher(cfg.NatsUrl)
	if err != nil {
		panic(err)
	}
	defer publisher.Close()

	server := api.NewServer(
		api.WithPort(cfg.Port),
		api.WithStage(cfg.Stage),
		api.WithAllowedOrigins(cfg.AllowedOrigins...),
		api.WithTimings(api.TimingsFromConfig(cfg)),
		api.WithIdentity(dbManager.Players),
		api.WithAnalytics(dbManager.Analytics),
		api.WithPublisher(publisher),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go server.Run(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", server.Port()),
		Handler:           server.Routes(),
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Println("shutdown:", err)
		}
	}()

	log.Printf("Listening to port %d\n", server.Port())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalln(err)
	}
}
