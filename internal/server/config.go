package server

import (
	"github.com/raysh454/kage/internal/fetcher"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server (the CLI
	// scans in-process and does not require the network).
	ListenAddr string

	// StorePath is the SQLite database file holding scan history.
	StorePath string

	// Fetch configures the page renderer used for submitted scans.
	Fetch *fetcher.Config

	// Scan is the default engine configuration; requests may override parts.
	Scan model.Config

	Logger logging.Logger
}

func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8454",
		StorePath:  "kage.db",
		Fetch:      fetcher.DefaultConfig(),
		Scan:       model.DefaultConfig(),
	}
}
