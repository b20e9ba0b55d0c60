package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pizza-order-service/board"
	"pizza-order-service/kitchenclient"

	"go.uber.org/zap"
)

func main() {
	var baseURL, token, email, password, views string
	var restFallback bool
	flag.StringVar(&baseURL, "api", envOr("BOARD_API_URL", "http://localhost:3000"), "order service base URL")
	flag.StringVar(&token, "token", os.Getenv("BOARD_TOKEN"), "bearer token (skips login)")
	flag.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "operator email used to log in")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "operator password used to log in")
	flag.StringVar(&views, "views", strings.Join([]string{board.AssemblyStation, board.FinishingInProgress, board.FinishingReady}, ","), "comma separated views to print")
	flag.BoolVar(&restFallback, "rest-fallback", true, "load today's orders over REST when the hub snapshot is late")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if token == "" {
		if email == "" || password == "" {
			logger.Fatal("Provide -token or -email and -password")
		}
		token, err = kitchenclient.Login(ctx, &http.Client{Timeout: 10 * time.Second}, baseURL, email, password)
		if err != nil {
			logger.Fatal("Login failed", zap.Error(err))
		}
	}

	wsURL, err := hubURL(baseURL)
	if err != nil {
		logger.Fatal("Invalid -api URL", zap.Error(err))
	}

	b := board.New()
	watched := strings.Split(views, ",")
	unsubscribe := b.Subscribe(func(c board.Change) {
		for _, name := range watched {
			orders := b.Orders(name)
			line := make([]string, 0, len(orders))
			for _, o := range orders {
				line = append(line, fmt.Sprintf("#%d %s (%s)", o.ID, o.CustomerName, o.Status))
			}
			logger.Info("Board changed",
				zap.String("event", string(c.Event)),
				zap.String("view", name),
				zap.Strings("orders", line),
			)
		}
	})
	defer unsubscribe()

	cfg := kitchenclient.Config{URL: wsURL, Token: token}
	if restFallback {
		cfg.Fetcher = kitchenclient.NewSnapshotFetcher(baseURL, token, 10*time.Second)
	}

	client := kitchenclient.New(cfg, b, logger)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("Board watch stopped", zap.Error(err))
	}
	logger.Info("Board watch stopped")
}

func hubURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
