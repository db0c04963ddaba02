package config

import "time"

// Mirror drivers accepted in Storage.MirrorDriver.
const (
	MirrorDriverSQLite = "sqlite"
	MirrorDriverBadger = "badger"
)

func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer:   "go-sync-keeper",
			TokenDuration: 24 * time.Hour,
			LogLevel:      "info",
		},
		Storage: Storage{
			Local:        Local{Path: "sync-keeper.db"},
			MirrorDriver: MirrorDriverSQLite,
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			RequestTimeout: 30 * time.Second,
		},
		Adapter: Adapter{
			BaseURL:        "http://localhost:8080",
			RequestTimeout: 10 * time.Second,
		},
		Workers: Workers{
			ProbeInterval: 5 * time.Second,
			ProbeTimeout:  2 * time.Second,
		},
	}
}
