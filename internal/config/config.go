package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"MemberSync/internal/batch"
	"MemberSync/internal/rank"
)

const (
	defaultTimezone       = "UTC"
	configPathEnv         = "MEMBERSYNC_CONFIG"
	databaseDriverEnv     = "DATABASE_DRIVER"
	databaseDSNEnv        = "DATABASE_DSN"
	discordTokenEnv       = "DISCORD_TOKEN"
	guildIDEnv            = "GUILD_ID"
	progressChannelIDEnv  = "PROGRESS_CHANNEL_ID"
	sweepIntervalHoursEnv = "SWEEP_INTERVAL_HOURS"
	logLevelEnv           = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Discord   DiscordConfig   `yaml:"discord"`
	Roles     RolesConfig     `yaml:"roles"`
	Ranks     rank.Table      `yaml:"ranks"`
	Batch     BatchConfig     `yaml:"batch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig selects the SQL driver ("sqlite3" or "postgres") and its DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DiscordConfig wires the directory and the progress channel.
type DiscordConfig struct {
	Token             string `yaml:"token"`
	GuildID           string `yaml:"guildId"`
	ProgressChannelID string `yaml:"progressChannelId"`
}

// RolesConfig maps every stage and override role to its directory id.
type RolesConfig struct {
	PreInitiate     string `yaml:"preInitiate"`
	PostInitiate    string `yaml:"postInitiate"`
	Senior          string `yaml:"senior"`
	Conselheiro     string `yaml:"conselheiro"`
	MestreDoSalgado string `yaml:"mestreDoSalgado"`
	MestrePescador  string `yaml:"mestrePescador"`
	MestreEscrivao  string `yaml:"mestreEscrivao"`
	MestreDeCurso   string `yaml:"mestreDeCurso"`
}

// Overrides returns the role ids backing the title overrides.
func (r RolesConfig) Overrides() rank.OverrideRoles {
	return rank.OverrideRoles{
		Conselheiro:     r.Conselheiro,
		MestreDoSalgado: r.MestreDoSalgado,
		MestrePescador:  r.MestrePescador,
		MestreEscrivao:  r.MestreEscrivao,
		MestreDeCurso:   r.MestreDeCurso,
	}
}

// BatchConfig tunes the bulk jobs.
type BatchConfig struct {
	ThrottleMs int `yaml:"throttleMs"`
}

// Throttle is the pause between items of rate-limited jobs.
func (b BatchConfig) Throttle() time.Duration {
	return time.Duration(b.ThrottleMs) * time.Millisecond
}

// SchedulerConfig defines how often the structure sweep runs.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MetricsConfig exposes the prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file named by MEMBERSYNC_CONFIG (if set) and applies environment overrides.
func Load() Config {
	return LoadPath(os.Getenv(configPathEnv))
}

// LoadPath is Load with an explicit config file path. An empty path uses defaults only.
func LoadPath(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if fileCfg, err := ReadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Ranks.Validate(); err != nil {
		log.Printf("config: %v (reverting to the default rank table)", err)
		cfg.Ranks = rank.DefaultTable()
	}

	return cfg
}

// ReadFile parses a YAML config file without applying defaults.
func ReadFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, err
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, err
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Discord.Token, discordTokenEnv)
	setString(&c.Discord.GuildID, guildIDEnv)
	setString(&c.Discord.ProgressChannelID, progressChannelIDEnv)
	setString(&c.Logging.Level, logLevelEnv)

	setString(&c.Roles.PreInitiate, "ALUVIAO_ROLE_ID")
	setString(&c.Roles.PostInitiate, "VETERANO_ROLE_ID")
	setString(&c.Roles.Senior, "MESTRE_ROLE_ID")
	setString(&c.Roles.MestreDeCurso, "MC_ROLE_ID")
	setString(&c.Roles.Conselheiro, "CS_ST_ROLE_ID")
	setString(&c.Roles.MestreDoSalgado, "MS_ROLE_ID")
	setString(&c.Roles.MestrePescador, "MP_ROLE_ID")
	setString(&c.Roles.MestreEscrivao, "ME_ROLE_ID")

	if v := os.Getenv(sweepIntervalHoursEnv); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			log.Printf("config: ignoring %s=%q", sweepIntervalHoursEnv, v)
		} else {
			c.Scheduler.Interval = time.Duration(hours) * time.Hour
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Discord.Token != "" {
		base.Discord.Token = override.Discord.Token
	}
	if override.Discord.GuildID != "" {
		base.Discord.GuildID = override.Discord.GuildID
	}
	if override.Discord.ProgressChannelID != "" {
		base.Discord.ProgressChannelID = override.Discord.ProgressChannelID
	}

	base.Roles = mergeRoles(base.Roles, override.Roles)

	if len(override.Ranks) > 0 {
		base.Ranks = override.Ranks
	}

	if override.Batch.ThrottleMs > 0 {
		base.Batch.ThrottleMs = override.Batch.ThrottleMs
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func mergeRoles(base, override RolesConfig) RolesConfig {
	pick := func(b, o string) string {
		if o != "" {
			return o
		}
		return b
	}
	return RolesConfig{
		PreInitiate:     pick(base.PreInitiate, override.PreInitiate),
		PostInitiate:    pick(base.PostInitiate, override.PostInitiate),
		Senior:          pick(base.Senior, override.Senior),
		Conselheiro:     pick(base.Conselheiro, override.Conselheiro),
		MestreDoSalgado: pick(base.MestreDoSalgado, override.MestreDoSalgado),
		MestrePescador:  pick(base.MestrePescador, override.MestrePescador),
		MestreEscrivao:  pick(base.MestreEscrivao, override.MestreEscrivao),
		MestreDeCurso:   pick(base.MestreDeCurso, override.MestreDeCurso),
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Driver: "sqlite3", DSN: "file:membersync.db"},
		Ranks:     rank.DefaultTable(),
		Batch:     BatchConfig{ThrottleMs: int(batch.DefaultThrottle / time.Millisecond)},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Metrics:   MetricsConfig{Addr: ":9090"},
		Logging:   LoggingConfig{Level: "info"},
	}
}
