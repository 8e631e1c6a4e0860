package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "vodo.db"
	DefaultLogName        = "vodo.log"
	DefaultAPIBaseURL     = "http://localhost:8081/api/voice-assistent"
)

type Keymap struct {
	Quit    string `toml:"quit"`
	Add     string `toml:"add"`
	Up      string `toml:"up"`
	Down    string `toml:"down"`
	Toggle  string `toml:"toggle"`
	Delete  string `toml:"delete"`
	Record  string `toml:"record"`
	Refresh string `toml:"refresh"`
	Confirm string `toml:"confirm"`
	Cancel  string `toml:"cancel"`
}

// Recorder describes the external process that delivers raw audio on
// stdout while a capture session is active.
type Recorder struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	MIME    string   `toml:"mime"`
}

type Config struct {
	APIBaseURL string   `toml:"api_base_url"`
	Offline    bool     `toml:"offline"`
	DBPath     string   `toml:"db_path"`
	LogPath    string   `toml:"log_path"`
	Recorder   Recorder `toml:"recorder"`
	Keys       Keymap   `toml:"keys"`
}

func ResolveConfigPath() string {
	if env := os.Getenv("VODO_CONFIG"); env != "" {
		return env
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	return applyEnv(cfg), nil
}

// applyEnv overlays environment variables on top of the file config.
// A .env file in the working directory is honoured if present.
func applyEnv(cfg Config) Config {
	_ = godotenv.Load(".env")

	if v, ok := os.LookupEnv("VODO_API_URL"); ok && v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := os.LookupEnv("VODO_OFFLINE"); ok {
		cfg.Offline = parseBool(v)
	}
	if v, ok := os.LookupEnv("VODO_LOG"); ok && v != "" {
		cfg.LogPath = v
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		APIBaseURL: DefaultAPIBaseURL,
		Offline:    false,
		DBPath:     DefaultDBName,
		LogPath:    DefaultLogName,
		Recorder: Recorder{
			Command: "arecord",
			Args:    []string{"-q", "-f", "S16_LE", "-r", "16000", "-t", "wav", "-"},
			MIME:    "audio/wav",
		},
		Keys: Keymap{
			Quit:    "q",
			Add:     "a",
			Up:      "k",
			Down:    "j",
			Toggle:  " ",
			Delete:  "d",
			Record:  "v",
			Refresh: "R",
			Confirm: "enter",
			Cancel:  "esc",
		},
	}
}
