package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/export"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	exporter, err := export.NewExporter(export.ExporterConfig{
		Schedule:  service.Config.Export.Schedule,
		OutputDir: service.Config.Export.OutputDir,
		Courses:   service.Config.Export.Courses,
		Timeout:   service.Config.ExportTimeout(),
	}, service)
	if err != nil {
		logger.Error.Fatalf("Failed to initialize board exporter: %v", err)
	}
	if err := exporter.Start(); err != nil {
		logger.Error.Fatalf("Failed to start board exporter: %v", err)
	}

	logger.Info.Printf("Exporting grade boards of %d courses on %q", len(service.Config.Export.Courses), service.Config.Export.Schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	exporter.Stop()
	logger.Info.Println("Board exporter stopped")
}
