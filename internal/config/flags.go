package config

import (
	"flag"
	"time"
)

// parseServerFlags parses the sync-server command line.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-c/-config json file path with configs
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration access token duration (e.g., "15m")
//	-refresh-duration refresh token duration (e.g., "720h")
//	-request-timeout request timeout (e.g., "30s")
func parseServerFlags() *StructuredConfig {
	var (
		serverAddress   string
		databaseDSN     string
		jsonConfigPath  string
		tokenSignKey    string
		tokenIssuer     string
		tokenDuration   time.Duration
		refreshDuration time.Duration
		requestTimeout  time.Duration
	)

	flag.StringVar(&serverAddress, "a", "", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&tokenDuration, "token-duration", 0, "Access token duration (e.g., 15m)")
	flag.DurationVar(&refreshDuration, "refresh-duration", 0, "Refresh token duration (e.g., 720h)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s)")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TokenSignKey:    tokenSignKey,
			TokenIssuer:     tokenIssuer,
			TokenDuration:   tokenDuration,
			RefreshDuration: refreshDuration,
		},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Server: Server{
			HTTPAddress:    serverAddress,
			RequestTimeout: requestTimeout,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// parseClientFlags parses the sync-agent command line.
//
// Flags:
//
//	-s sync server base URL
//	-db local sqlite database path
//	-c/-config json file path with configs
//	-sync-interval unattended sync interval (e.g., "5m")
//	-sync-enabled start the scheduler on launch
//	-request-timeout request timeout (e.g., "30s")
func parseClientFlags() *ClientConfig {
	var (
		serverAddress  string
		sqlitePath     string
		jsonConfigPath string
		syncInterval   time.Duration
		syncEnabled    bool
		requestTimeout time.Duration
	)

	flag.StringVar(&serverAddress, "s", "", "Sync server base URL")
	flag.StringVar(&sqlitePath, "db", "", "Local sqlite database path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Unattended sync interval (e.g., 5m)")
	flag.BoolVar(&syncEnabled, "sync-enabled", false, "Start the scheduler on launch")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s)")

	flag.Parse()

	return &ClientConfig{
		Adapter: Adapter{
			HTTPAddress:    serverAddress,
			RequestTimeout: requestTimeout,
		},
		Storage: ClientStorage{SQLitePath: sqlitePath},
		Sync: Sync{
			Interval: syncInterval,
			Enabled:  syncEnabled,
		},
		JSONFilePath: jsonConfigPath,
	}
}
