package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"matchbook/src/config"
	"matchbook/src/engine"
	"matchbook/src/feed"
	"matchbook/src/handlers"
	"matchbook/src/logger"
	"matchbook/src/publisher"
	"matchbook/src/routes"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.InitLogger(config.Default().Logging, os.Stderr)
		log := logger.GetLogger()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// stdout carries trades in stdin mode
	console := os.Stdout
	if cfg.Mode == config.ModeStdin {
		console = os.Stderr
	}
	logger.InitLogger(cfg.Logging, console)
	defer logger.CloseLogger()
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	pub, pubDone := startPublisher(ctx, cfg, log)

	var sink engine.TradeSink
	if pub != nil {
		sink = pub.Publish
	}

	switch cfg.Mode {
	case config.ModeStdin:
		runStdin(ctx, sink, log)
	case config.ModeHTTP:
		runHTTP(ctx, cfg, pub, sink, log)
	}

	// cancelling stops the publisher, which drains its queue before returning
	stop()
	if pub != nil {
		<-pubDone
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing trade publisher")
		}
	}
}

func startPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*publisher.Publisher, <-chan struct{}) {
	if !cfg.Kafka.Enabled() {
		return nil, nil
	}

	pub := publisher.New(cfg.Kafka)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Run(ctx)
	}()

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Msg("Trade publisher started")
	return pub, done
}

func runStdin(ctx context.Context, sink engine.TradeSink, log zerolog.Logger) {
	log.Info().Msg("Reading orders from stdin")

	if _, err := feed.Run(ctx, os.Stdin, os.Stdout, sink); err != nil {
		log.Error().Err(err).Msg("Order feed failed")
	}
}

func runHTTP(ctx context.Context, cfg *config.Config, pub *publisher.Publisher, sink engine.TradeSink, log zerolog.Logger) {
	log.Info().Msg("Initializing Order Matching Engine")

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	loop := engine.NewLoop(cfg.Engine.LoopBuffer, sink)
	go loop.Run(loopCtx)

	orderHandler := handlers.NewOrderHandler(loop, pub, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Err(err).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, orderHandler, cfg)

	port := ":" + cfg.Server.Port
	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			serverError <- err
		}
	}()

	log.Info().
		Str("port", port).
		Strs("endpoints", routes.Endpoints).
		Msg("Order Matching Engine started")

	select {
	case err := <-serverError:
		log.Fatal().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: PORT=3000 go run main.go").
			Msg("Server failed to start")
	case <-ctx.Done():
	}
	log.Info().Msg("Received shutdown signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.Server.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	}

	// the loop outlives the server so in-flight requests get answers
	stopLoop()
	<-loop.Done()
	log.Info().Msg("Shutdown complete")
}
