package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"vodo/internal/api"
	"vodo/internal/capture"
	"vodo/internal/config"
	"vodo/internal/storage"
	"vodo/internal/store"
	"vodo/internal/ui"
)

func main() {
	cfg, err := config.LoadOrCreate(config.ResolveConfigPath())
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file.
	logger := newLogger(cfg.LogPath)
	zap.ReplaceGlobals(logger)
	defer func() {
		_ = logger.Sync()
	}()

	var remote store.Remote
	var uploader ui.Uploader
	if cfg.Offline {
		local, err := storage.Open(cfg.DBPath)
		if err != nil {
			fmt.Printf("failed to open local database: %v\n", err)
			os.Exit(1)
		}
		defer local.Close()
		remote = local
	} else {
		client := api.NewClient(cfg.APIBaseURL)
		remote = client
		uploader = client
	}

	st := store.New(remote)
	device := capture.NewCommandDevice(cfg.Recorder.Command, cfg.Recorder.Args...)

	if err := ui.Run(st, uploader, device, cfg); err != nil {
		fmt.Printf("error running program: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(path string) *zap.Logger {
	if path == "" {
		path = config.DefaultLogName
	}
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
