package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
)

// DefaultTeams are the eight franchises the auction runs with unless
// TEAM_NAMES says otherwise.
var DefaultTeams = []string{
	"Chennai Super Kings",
	"Mumbai Indians",
	"Royal Challengers Bangalore",
	"Kolkata Knight Riders",
	"Delhi Capitals",
	"Rajasthan Royals",
	"Sunrisers Hyderabad",
	"Punjab Kings",
}

// Config holds all runtime configuration for the auction server.
type Config struct {
	Port             int
	LogLevel         string
	CatalogPath      string
	ShuffleSeed      uint64 // 0 picks a random seed
	AuctioneerSecret string
	Teams            []string
	SquadSize        int
	Purse            decimal.Decimal
	OverseasCap      int
	SourceTeamCap    int
	RoleMinimums     map[engine.Role]int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. Every bad value is reported, not just the first.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:         getStr("LOG_LEVEL", "info"),
		CatalogPath:      getStr("CATALOG_PATH", "players.xlsx"),
		AuctioneerSecret: os.Getenv("AUCTIONEER_SECRET"),
		Teams:            getList("TEAM_NAMES", DefaultTeams),
	}
	var errs, err error

	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid PORT: %w", err))
	}
	if !isValidLogLevel(cfg.LogLevel) {
		errs = multierr.Append(errs, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.ShuffleSeed, err = getUint("SHUFFLE_SEED", 0); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid SHUFFLE_SEED: %w", err))
	}

	defaults := engine.DefaultRules()
	if cfg.SquadSize, err = getInt("SQUAD_SIZE", defaults.SquadSize); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid SQUAD_SIZE: %w", err))
	}
	if cfg.Purse, err = getDecimal("PURSE", defaults.Purse); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid PURSE: %w", err))
	}
	if cfg.OverseasCap, err = getInt("OVERSEAS_CAP", defaults.OverseasCap); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid OVERSEAS_CAP: %w", err))
	}
	if cfg.SourceTeamCap, err = getInt("SOURCE_TEAM_CAP", defaults.SourceTeamCap); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid SOURCE_TEAM_CAP: %w", err))
	}
	if cfg.RoleMinimums, err = getRoleMinimums("ROLE_MINIMUMS", defaults.RoleMinimums); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid ROLE_MINIMUMS: %w", err))
	}

	if cfg.ReadTimeout, err = getDuration("READ_TIMEOUT", 5*time.Second); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid READ_TIMEOUT: %w", err))
	}
	if cfg.WriteTimeout, err = getDuration("WRITE_TIMEOUT", 10*time.Second); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err))
	}
	if cfg.IdleTimeout, err = getDuration("IDLE_TIMEOUT", 60*time.Second); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err))
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err))
	}

	if errs != nil {
		return nil, errs
	}
	if err := cfg.Rules().Validate(); err != nil {
		return nil, fmt.Errorf("invalid auction rules: %w", err)
	}
	return cfg, nil
}

// Rules builds the engine rules, keeping the default bid steps and
// uncapped quota.
func (c *Config) Rules() engine.Rules {
	r := engine.DefaultRules()
	r.SquadSize = c.SquadSize
	r.Purse = c.Purse
	r.OverseasCap = c.OverseasCap
	r.SourceTeamCap = c.SourceTeamCap
	r.RoleMinimums = c.RoleMinimums
	return r
}

func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getUint(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(strings.TrimSpace(v))
}

// getList splits a comma list, dropping blanks.
func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getRoleMinimums parses "Bat:4,Bowl:4,AR:2,WK:1". Roles left out get 0.
func getRoleMinimums(key string, defaultVal map[engine.Role]int) (map[engine.Role]int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	out := make(map[engine.Role]int, len(engine.Roles))
	for _, r := range engine.Roles {
		out[r] = 0
	}
	for _, part := range strings.Split(v, ",") {
		role, n, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("entry %q is not role:count", part)
		}
		r := engine.Role(strings.TrimSpace(role))
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		count, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || count < 0 {
			return nil, fmt.Errorf("bad count %q for %s", n, r)
		}
		out[r] = count
	}
	return out, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
