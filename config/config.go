package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server ServerSection `toml:"server"`
	Limits LimitsSection `toml:"limits"`
}

type ServerSection struct {
	Port        int    `toml:"port"`
	DBPath      string `toml:"db_path"`
	MetricsPort int    `toml:"metrics_port"` // 0 - метрики выключены
}

type LimitsSection struct {
	MaxClients   int `toml:"max_clients"`
	ReadTimeout  int `toml:"read_timeout_seconds"`
	WriteTimeout int `toml:"write_timeout_seconds"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: ServerSection{
			Port:        8888,
			DBPath:      "chatd.db",
			MetricsPort: 9090,
		},
		Limits: LimitsSection{
			MaxClients:   100,
			ReadTimeout:  120,
			WriteTimeout: 30,
		},
	}
}

// Load читает TOML-файл конфигурации, создает его с значениями по
// умолчанию, если файла нет, и применяет переопределения из окружения.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Первый запуск - записываем файл с дефолтами
		if f, err := os.Create(path); err == nil {
			toml.NewEncoder(f).Encode(cfg)
			f.Close()
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHATD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CHATD_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("CHATD_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = port
		}
	}
	if v := os.Getenv("CHATD_MAX_CLIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxClients = n
		}
	}
	if v := os.Getenv("CHATD_READ_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.ReadTimeout = n
		}
	}
	if v := os.Getenv("CHATD_WRITE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.WriteTimeout = n
		}
	}
}
