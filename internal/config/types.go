package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full daemon configuration. Files may be JSON or YAML; both
// are decoded strictly, so unknown keys are rejected.
type Config struct {
	Log      LogConfig      `json:"log"`
	Discord  DiscordConfig  `json:"discord"`
	API      APIConfig      `json:"api"`
	Storage  StorageConfig  `json:"storage"`
	Schedule ScheduleConfig `json:"schedule"`
	Clans    []ClanConfig   `json:"clans"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// DiscordConfig targets the status channel. Token and ChannelID may come from
// the environment instead of the file (DISCORD_BOT_TOKEN,
// DISCORD_LOG_CHANNELID, DISCORD_MENTION_USERID).
type DiscordConfig struct {
	Token         string `json:"token"`
	ChannelID     string `json:"channel_id"`
	MentionUserID string `json:"mention_user_id"`
}

// APIConfig targets the Clash of Clans API. Key may come from API_COC_KEY.
type APIConfig struct {
	Key        string  `json:"key"`
	BaseURL    string  `json:"base_url"`
	RatePerSec float64 `json:"rate_per_sec"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"`
}

// ScheduleConfig carries the polling intervals shared by all clans, as Go
// duration strings. Empty values fall back to defaults.
type ScheduleConfig struct {
	ClanInfo string `json:"clan_info"`
	Members  string `json:"members"`
	WarLog   string `json:"war_log"`
	CWL      string `json:"cwl"`
}

type ClanConfig struct {
	Tag    string `json:"tag"`
	Season string `json:"season"`
}

const (
	defaultClanInfoEvery = 24 * time.Hour
	defaultMembersEvery  = 4 * time.Hour
	defaultWarLogEvery   = 12 * time.Hour
	defaultCWLEvery      = 2 * time.Hour
	defaultBusyTimeout   = 5 * time.Second
	defaultRatePerSec    = 5
)

var (
	ErrMissingDiscordToken   = errors.New("config: discord token is required (discord.token or DISCORD_BOT_TOKEN)")
	ErrMissingDiscordChannel = errors.New("config: discord channel id is required (discord.channel_id or DISCORD_LOG_CHANNELID)")
	ErrMissingAPIKey         = errors.New("config: api key is required (api.key or API_COC_KEY)")
	ErrNoClans               = errors.New("config: at least one clan is required")
)

// Validate checks a parsed configuration. Missing Discord credentials are
// fatal; a missing mention user only disables mention prefixing.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingDiscordToken
	}
	if strings.TrimSpace(c.Discord.ChannelID) == "" {
		return ErrMissingDiscordChannel
	}
	if strings.TrimSpace(c.API.Key) == "" {
		return ErrMissingAPIKey
	}
	if len(c.Clans) == 0 {
		return ErrNoClans
	}
	for i, clan := range c.Clans {
		tag := strings.TrimSpace(clan.Tag)
		if tag == "" {
			return fmt.Errorf("config: clans[%d]: tag is required", i)
		}
		if !strings.HasPrefix(tag, "#") {
			return fmt.Errorf("config: clans[%d]: tag %q must start with '#'", i, tag)
		}
	}
	for _, f := range []struct{ name, raw string }{
		{"schedule.clan_info", c.Schedule.ClanInfo},
		{"schedule.members", c.Schedule.Members},
		{"schedule.war_log", c.Schedule.WarLog},
		{"schedule.cwl", c.Schedule.CWL},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		if _, err := time.ParseDuration(f.raw); err != nil {
			return fmt.Errorf("config: %s: %w", f.name, err)
		}
	}
	return nil
}

// ClanInfoEvery returns the clan-info polling interval.
func (c *Config) ClanInfoEvery() time.Duration {
	return durationOr(c.Schedule.ClanInfo, defaultClanInfoEvery)
}

// MembersEvery returns the roster polling interval.
func (c *Config) MembersEvery() time.Duration {
	return durationOr(c.Schedule.Members, defaultMembersEvery)
}

// WarLogEvery returns the war-log polling interval.
func (c *Config) WarLogEvery() time.Duration {
	return durationOr(c.Schedule.WarLog, defaultWarLogEvery)
}

// CWLEvery returns the league-war polling interval. League state moves much
// faster than the regular war log, hence the tighter default.
func (c *Config) CWLEvery() time.Duration {
	return durationOr(c.Schedule.CWL, defaultCWLEvery)
}

// StorageBusyTimeout returns the sqlite busy timeout.
func (c *Config) StorageBusyTimeout() time.Duration {
	return durationOr(c.Storage.BusyTimeout, defaultBusyTimeout)
}

// APIRatePerSec returns the outbound API request budget.
func (c *Config) APIRatePerSec() float64 {
	if c.API.RatePerSec > 0 {
		return c.API.RatePerSec
	}
	return defaultRatePerSec
}

func durationOr(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
