package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var errEnvVarNotFound error = errors.New("environment variable not found")

const (
	apiPortEnvKey       = "API_PORT"
	dbConnEnvKey        = "DB_CONNECTION_URL"
	chainIDEnvKey       = "CHAIN_ID"
	meshSecretEnvKey    = "MESH_SECRET"
	sessionSecretEnvKey = "SESSION_SECRET"
	peersEnvKey         = "CHAIN_PEERS"
	pullIntervalEnvKey  = "STREAM_PULL_INTERVAL"
)

const defaultPullInterval = 5 * time.Second

type App struct {
	Port            string
	DBConnectionURL string
	ChainID         string
	MeshSecret      string
	SessionSecret   string
	Peers           map[string]string
	PullInterval    time.Duration
}

func NewApp() (App, error) {

	port, ok := os.LookupEnv(apiPortEnvKey)
	if !ok {
		return App{}, fmt.Errorf("%w: %s", errEnvVarNotFound, apiPortEnvKey)
	}

	dbConn, ok := os.LookupEnv(dbConnEnvKey)
	if !ok {
		return App{}, fmt.Errorf("%w: %s", errEnvVarNotFound, dbConnEnvKey)
	}

	chainID, ok := os.LookupEnv(chainIDEnvKey)
	if !ok {
		return App{}, fmt.Errorf("%w: %s", errEnvVarNotFound, chainIDEnvKey)
	}

	meshSecret, ok := os.LookupEnv(meshSecretEnvKey)
	if !ok {
		return App{}, fmt.Errorf("%w: %s", errEnvVarNotFound, meshSecretEnvKey)
	}

	sessionSecret, ok := os.LookupEnv(sessionSecretEnvKey)
	if !ok {
		return App{}, fmt.Errorf("%w: %s", errEnvVarNotFound, sessionSecretEnvKey)
	}

	peers, err := parsePeers(os.Getenv(peersEnvKey))
	if err != nil {
		return App{}, fmt.Errorf("parse %s: %w", peersEnvKey, err)
	}

	pullInterval := defaultPullInterval
	if raw, ok := os.LookupEnv(pullIntervalEnvKey); ok {
		pullInterval, err = time.ParseDuration(raw)
		if err != nil {
			return App{}, fmt.Errorf("parse %s: %w", pullIntervalEnvKey, err)
		}
	}

	return App{
		Port:            port,
		DBConnectionURL: dbConn,
		ChainID:         chainID,
		MeshSecret:      meshSecret,
		SessionSecret:   sessionSecret,
		Peers:           peers,
		PullInterval:    pullInterval,
	}, nil
}

// parsePeers reads a "chainID=url,chainID=url" table. An empty value is a
// valid single-chain deployment.
func parsePeers(raw string) (map[string]string, error) {
	peers := make(map[string]string)
	if raw == "" {
		return peers, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed peer entry %q", entry)
		}
		peers[parts[0]] = parts[1]
	}

	return peers, nil
}
