package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"duoaudio/api"
	"duoaudio/audiogen"
	"duoaudio/events"
)

// shutdownTimeout bounds graceful shutdown of the server and active runs
const shutdownTimeout = 30 * time.Second

// ServeCommand returns the serve CLI command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and the generation scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   "8080",
				EnvVars: []string{"PORT"},
			},
			ConfigFlag(),
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	log.Printf("📁 Loaded %d lesson(s), %d schedule(s)", len(cfg.Lessons), len(cfg.Schedules))

	delay, err := cfg.ItemDelayDuration()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	broker := events.NewBroker()
	service := audiogen.NewService(client, audiogen.Options{
		ItemDelay:   delay,
		Storage:     store,
		Broadcaster: broker,
	})

	scheduler := audiogen.NewScheduler(cfg, service)
	if len(cfg.Schedules) > 0 {
		go scheduler.Start()
		defer scheduler.Stop()
	}

	mux := api.NewMux(api.Deps{
		Config:  cfg,
		Service: service,
		Store:   store,
		Broker:  broker,
	})

	port := c.String("port")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           api.CORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting duoaudio server on port %s...", port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop active runs: %w", err)
	}
	return nil
}
