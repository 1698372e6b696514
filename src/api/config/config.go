package config

import (
	"log"
	"os"
)

type Config struct {
	MySQLDSN    string
	RedisURL    string
	JWTSecret   string
	RPCURL      string
	SignerURL   string
	ExplorerURL string
	// FallbackAddress is the operator account that covers execution when a
	// treasury is underfunded. Leave empty to disable the fallback.
	FallbackAddress string
	Port            string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	return Config{
		MySQLDSN:        getenv("MYSQL_DSN", "dalaran:dalaran@tcp(127.0.0.1:3306)/dalaran"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		RPCURL:          getenv("RPC_URL", "https://api.devnet.solana.com"),
		SignerURL:       getenv("SIGNER_URL", "http://127.0.0.1:8899"),
		ExplorerURL:     getenv("EXPLORER_URL", "https://explorer.solana.com"),
		FallbackAddress: os.Getenv("FALLBACK_ADDRESS"),
		Port:            getenv("PORT", "8080"),
	}
}
