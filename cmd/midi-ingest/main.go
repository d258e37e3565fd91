package main

import (
	"flag"
	"fmt"
	"os"

	"midi-ingest/internal/app"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to configuration file")
	flag.Parse()

	if configFile == "" {
		if envConfigFile := os.Getenv("MIDI_INGEST_CONFIG_FILE"); envConfigFile != "" {
			configFile = envConfigFile
		}
	}

	fmt.Printf("Using configuration file: %q\n", configFile)

	application, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create application: %v\n", err)
		os.Exit(1)
	}

	summary, err := application.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Import complete: %d files, %d imported, %d skipped, %d errors, %.1f files/sec\n",
		summary.TotalFiles, summary.Imported, summary.Skipped, summary.Errors, summary.Rate)
}
