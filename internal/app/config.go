package app

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	UDPAddr     string `env:"UDP_ADDR" envDefault:":8081"`
	AdvertiseIP string `env:"ADVERTISE_IP" envDefault:"127.0.0.1"`

	InactivityTimeout  time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"15s"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"5s"`
	LobbyGracePeriod   time.Duration `env:"LOBBY_GRACE_PERIOD" envDefault:"60s"`
	ReloadTickInterval time.Duration `env:"RELOAD_TICK_INTERVAL" envDefault:"100ms"`
	DummyTickInterval  time.Duration `env:"DUMMY_TICK_INTERVAL" envDefault:"200ms"`
	StateSyncInterval  time.Duration `env:"STATE_SYNC_INTERVAL" envDefault:"500ms"`

	// WeaponsPath points at a weapon definitions file; empty uses the
	// built-in table.
	WeaponsPath string `env:"WEAPONS_PATH"`

	// BootstrapLobby creates a lobby at startup so a bare server is
	// immediately joinable. Empty disables.
	BootstrapLobby     string `env:"BOOTSTRAP_LOBBY" envDefault:"TEST"`
	BootstrapScene     string `env:"BOOTSTRAP_SCENE" envDefault:"test_world"`
	BootstrapCapacity  int    `env:"BOOTSTRAP_MAX_PLAYERS" envDefault:"8"`
	SpawnDummy         bool   `env:"SPAWN_DUMMY" envDefault:"true"`

	LogBufferSize int    `env:"LOG_BUFFER_SIZE" envDefault:"512"`
	LogSeverity   string `env:"LOG_SEVERITY" envDefault:"info"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// UDPPort extracts the advertised data-plane port from the UDP bind address.
func (c Config) UDPPort() (int, error) {
	_, portStr, err := net.SplitHostPort(c.UDPAddr)
	if err != nil {
		return 0, fmt.Errorf("udp address %q: %w", c.UDPAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("udp port %q: %w", portStr, err)
	}
	return port, nil
}
