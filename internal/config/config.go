package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigName = "config"

type Steam struct {
	APIKey      string
	UsePFS      bool
	BatchSize   int
	MaxAttempts int
	BatchPause  time.Duration
}

type RCON struct {
	Host         string
	Port         int
	Password     string
	DialAttempts int
	DialTimeout  time.Duration
}

type SFTP struct {
	Host       string
	Port       int
	User       string
	Password   string
	RemoteFile string
}

// Configured reports whether enough is set to attempt a transfer.
func (s SFTP) Configured() bool {
	return s.User != "" && s.RemoteFile != ""
}

type Watch struct {
	CountdownMinutes int
	RestartTimeout   time.Duration
}

type Messages struct {
	Warning string
	Restart string
}

type Paths struct {
	DataDir     string
	Registry    string
	ServerINI   string
	DiscordList string
	Journal     string
	Lock        string
	LogFile     string
	Telemetry   string
}

type Config struct {
	Steam    Steam
	RCON     RCON
	SFTP     SFTP
	Watch    Watch
	Messages Messages
	Paths    Paths
}

func Load(file string) (Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	v.SetEnvPrefix("PZW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("steam.api_key", "")
	v.SetDefault("steam.use_pfs", false)
	v.SetDefault("steam.batch_size", 50)
	v.SetDefault("steam.max_attempts", 5)
	v.SetDefault("steam.batch_pause", "500ms")

	v.SetDefault("rcon.host", "")
	v.SetDefault("rcon.port", 27015)
	v.SetDefault("rcon.password", "")
	v.SetDefault("rcon.dial_attempts", 3)
	v.SetDefault("rcon.dial_timeout", "10s")

	v.SetDefault("sftp.host", "")
	v.SetDefault("sftp.port", 22)
	v.SetDefault("sftp.user", "")
	v.SetDefault("sftp.password", "")
	v.SetDefault("sftp.remote_file", "")

	v.SetDefault("watch.countdown_minutes", 5)
	v.SetDefault("watch.restart_timeout", "5s")

	v.SetDefault("messages.warning", "[SERVER] Restart in {minutes} minutes due to a mod update!")
	v.SetDefault("messages.restart", "[SERVER] Server is restarting now due to a mod update! Please disconnect within {seconds}sec or get kicked!")

	v.SetDefault("paths.data_dir", "./data")
	v.SetDefault("paths.registry", "")
	v.SetDefault("paths.server_ini", "")
	v.SetDefault("paths.discord_list", "")
	v.SetDefault("paths.journal", "")
	v.SetDefault("paths.lock", "")
	v.SetDefault("paths.log_file", "")
	v.SetDefault("paths.telemetry", "")

	// Config file is optional; env-only is fine.
	_ = v.ReadInConfig()

	cfg := Config{
		Steam: Steam{
			APIKey:      v.GetString("steam.api_key"),
			UsePFS:      v.GetBool("steam.use_pfs"),
			BatchSize:   v.GetInt("steam.batch_size"),
			MaxAttempts: v.GetInt("steam.max_attempts"),
			BatchPause:  v.GetDuration("steam.batch_pause"),
		},
		RCON: RCON{
			Host:         strings.TrimSpace(v.GetString("rcon.host")),
			Port:         v.GetInt("rcon.port"),
			Password:     v.GetString("rcon.password"),
			DialAttempts: v.GetInt("rcon.dial_attempts"),
			DialTimeout:  v.GetDuration("rcon.dial_timeout"),
		},
		SFTP: SFTP{
			Host:       strings.TrimSpace(v.GetString("sftp.host")),
			Port:       v.GetInt("sftp.port"),
			User:       v.GetString("sftp.user"),
			Password:   v.GetString("sftp.password"),
			RemoteFile: v.GetString("sftp.remote_file"),
		},
		Watch: Watch{
			CountdownMinutes: v.GetInt("watch.countdown_minutes"),
			RestartTimeout:   v.GetDuration("watch.restart_timeout"),
		},
		Messages: Messages{
			Warning: v.GetString("messages.warning"),
			Restart: v.GetString("messages.restart"),
		},
		Paths: Paths{
			DataDir:     v.GetString("paths.data_dir"),
			Registry:    v.GetString("paths.registry"),
			ServerINI:   v.GetString("paths.server_ini"),
			DiscordList: v.GetString("paths.discord_list"),
			Journal:     v.GetString("paths.journal"),
			Lock:        v.GetString("paths.lock"),
			LogFile:     v.GetString("paths.log_file"),
			Telemetry:   v.GetString("paths.telemetry"),
		},
	}

	if cfg.RCON.Host == "" {
		return Config{}, fmt.Errorf("rcon.host must not be empty")
	}
	if cfg.RCON.Port <= 0 || cfg.RCON.Port > 65535 {
		return Config{}, fmt.Errorf("invalid rcon.port %d", cfg.RCON.Port)
	}
	if cfg.RCON.Password == "" {
		return Config{}, fmt.Errorf("rcon.password must not be empty")
	}
	if cfg.SFTP.Port <= 0 || cfg.SFTP.Port > 65535 {
		return Config{}, fmt.Errorf("invalid sftp.port %d", cfg.SFTP.Port)
	}
	if cfg.Steam.BatchSize <= 0 {
		return Config{}, fmt.Errorf("steam.batch_size must be positive")
	}
	if cfg.Steam.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("steam.max_attempts must be positive")
	}
	if cfg.Watch.CountdownMinutes < 1 {
		return Config{}, fmt.Errorf("watch.countdown_minutes must be at least 1")
	}
	if cfg.Watch.RestartTimeout <= 0 {
		return Config{}, fmt.Errorf("watch.restart_timeout must be positive")
	}

	// The SFTP host defaults to the game host; both usually live on the same box.
	if cfg.SFTP.Host == "" {
		cfg.SFTP.Host = cfg.RCON.Host
	}

	dataDir, err := filepath.Abs(cfg.Paths.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data_dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("create data_dir: %w", err)
	}
	cfg.Paths.DataDir = dataDir

	defaultPath(&cfg.Paths.Registry, dataDir, "modinfo.json")
	defaultPath(&cfg.Paths.DiscordList, dataDir, "discord_modlist.txt")
	defaultPath(&cfg.Paths.Journal, dataDir, "pzwatch.db")
	defaultPath(&cfg.Paths.Lock, dataDir, "pzwatch.pid")
	if cfg.Paths.ServerINI == "" && cfg.SFTP.RemoteFile != "" {
		cfg.Paths.ServerINI = filepath.Join(dataDir, filepath.Base(cfg.SFTP.RemoteFile))
	}
	if cfg.Paths.ServerINI == "" {
		return Config{}, fmt.Errorf("paths.server_ini or sftp.remote_file must be set")
	}
	return cfg, nil
}

func defaultPath(p *string, dir, name string) {
	if *p == "" {
		*p = filepath.Join(dir, name)
	}
}
