package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/microfront/internal/infrastructure/config"
	"github.com/GriffinCanCode/microfront/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	browserURL := flag.String("browser-url", "", "Shared URL the virtual router starts from")
	manifest := flag.String("manifest", "", "Path to apps.yaml (overrides APPS_MANIFEST)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *manifest != "" {
		cfg.Manifest.Path = *manifest
	}

	srv, err := server.New(server.Config{
		BrowserURL: *browserURL,
		Host:       cfg,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(cfg.Server.Host + ":" + cfg.Server.Port); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
