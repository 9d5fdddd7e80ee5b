package main

import (
	"context"
	"fmt"
	"os"

	"github.com/meridianerp/quotes-backend/internal/app"
	"github.com/meridianerp/quotes-backend/internal/observability"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	shutdown := observability.InitOTel(context.Background(), a.Log, observability.OtelConfig{
		ServiceName: "quotes-backend",
		Environment: a.Cfg.Environment,
	})
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	a.Log.Info("listening", "addr", a.Cfg.HTTPAddr)
	if err := a.Run(a.Cfg.HTTPAddr); err != nil {
		a.Log.Fatal("server exited", "error", err)
	}
}
