// Package config loads the daemon configuration: a TOML file layered over
// built-in defaults, with a couple of environment overrides for deploys
// that cannot ship a file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/pricing"
)

type Config struct {
	API      APIConfig      `toml:"api"`
	Storage  StorageConfig  `toml:"storage"`
	Engine   EngineConfig   `toml:"engine"`
	Pricing  PricingConfig  `toml:"pricing"`
	Calendar CalendarConfig `toml:"calendar"`
	Zones    []ZoneSeed     `toml:"zones"`
}

type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

type StorageConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	Backend     string `toml:"backend"`
	SQLitePath  string `toml:"sqlite_path"`
	DatabaseURL string `toml:"database_url"`
}

type EngineConfig struct {
	PaymentWindow     duration `toml:"payment_window"`
	ClaimWindow       duration `toml:"claim_window"`
	SweepInterval     duration `toml:"sweep_interval"`
	ExpiryWarnWindow  duration `toml:"expiry_warn_window"`
	LedgerGCRetention duration `toml:"ledger_gc_retention"`
}

type PricingConfig struct {
	DailyPerDayCents   int64            `toml:"daily_per_day_cents"`
	VisitorPerDayCents int64            `toml:"visitor_per_day_cents"`
	SemesterCents      int64            `toml:"semester_cents"`
	AcademicYearCents  int64            `toml:"academic_year_cents"`
	EventCents         int64            `toml:"event_cents"`
	RoleMultiplierBps  map[string]int64 `toml:"role_multiplier_bps"`
}

type CalendarConfig struct {
	Semesters []TermConfig `toml:"semesters"`
	Years     []TermConfig `toml:"years"`
}

type TermConfig struct {
	Name  string `toml:"name"`
	Start string `toml:"start"`
	End   string `toml:"end"`
}

type ZoneSeed struct {
	Name     string `toml:"name"`
	Capacity int    `toml:"capacity"`
}

// duration parses TOML strings like "15m" or "24h".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration: memory storage, the
// institutional rate card, and the original campus lot's four areas.
func Default() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Storage: StorageConfig{
			Backend:    "memory",
			SQLitePath: "smartpark.db",
		},
		Engine: EngineConfig{
			PaymentWindow:     duration(15 * time.Minute),
			ClaimWindow:       duration(24 * time.Hour),
			SweepInterval:     duration(time.Minute),
			ExpiryWarnWindow:  duration(48 * time.Hour),
			LedgerGCRetention: duration(7 * 24 * time.Hour),
		},
		Pricing: PricingConfig{
			DailyPerDayCents:   300,
			VisitorPerDayCents: 500,
			SemesterCents:      9000,
			AcademicYearCents:  16000,
			EventCents:         1500,
			RoleMultiplierBps: map[string]int64{
				"student": 10000,
				"faculty": 12500,
				"staff":   11500,
				"visitor": 10000,
			},
		},
		Calendar: CalendarConfig{
			Semesters: []TermConfig{
				{Name: "fall", Start: "2026-08-24", End: "2026-12-18"},
				{Name: "spring", Start: "2027-01-11", End: "2027-05-14"},
			},
			Years: []TermConfig{
				{Name: "2026-2027", Start: "2026-08-24", End: "2027-05-14"},
			},
		},
		Zones: []ZoneSeed{
			{Name: "Area A - Main", Capacity: 80},
			{Name: "Area B - North", Capacity: 60},
			{Name: "Area C - South", Capacity: 40},
			{Name: "Area D - VIP", Capacity: 20},
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path keeps
// the defaults. SMARTPARK_DATABASE_URL and SMARTPARK_PORT override the
// file, for container deployments.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if url := os.Getenv("SMARTPARK_DATABASE_URL"); url != "" {
		cfg.Storage.DatabaseURL = url
	}
	if port := os.Getenv("SMARTPARK_PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &cfg.API.Port); err != nil {
			return Config{}, fmt.Errorf("SMARTPARK_PORT: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.DatabaseURL == "" {
		return fmt.Errorf("postgres backend requires storage.database_url")
	}
	if _, err := c.AcademicCalendar(); err != nil {
		return err
	}
	return nil
}

// Rates converts the pricing section into the resolver's rate card.
func (c Config) Rates() pricing.Rates {
	rates := pricing.Rates{
		DailyPerDayCents:   c.Pricing.DailyPerDayCents,
		VisitorPerDayCents: c.Pricing.VisitorPerDayCents,
		SemesterCents:      c.Pricing.SemesterCents,
		AcademicYearCents:  c.Pricing.AcademicYearCents,
		EventCents:         c.Pricing.EventCents,
		RoleMultiplierBps:  make(map[domain.Role]int64, len(c.Pricing.RoleMultiplierBps)),
	}
	for role, bps := range c.Pricing.RoleMultiplierBps {
		rates.RoleMultiplierBps[domain.Role(role)] = bps
	}
	return rates
}

// AcademicCalendar parses the calendar section's date strings.
func (c Config) AcademicCalendar() (domain.AcademicCalendar, error) {
	cal := domain.AcademicCalendar{}
	for _, t := range c.Calendar.Semesters {
		term, err := parseTerm(t)
		if err != nil {
			return domain.AcademicCalendar{}, err
		}
		cal.Semesters = append(cal.Semesters, term)
	}
	for _, t := range c.Calendar.Years {
		term, err := parseTerm(t)
		if err != nil {
			return domain.AcademicCalendar{}, err
		}
		cal.Years = append(cal.Years, term)
	}
	return cal, nil
}

func parseTerm(t TermConfig) (domain.Term, error) {
	start, err := domain.ParseDay(t.Start)
	if err != nil {
		return domain.Term{}, fmt.Errorf("term %s start: %w", t.Name, err)
	}
	end, err := domain.ParseDay(t.End)
	if err != nil {
		return domain.Term{}, fmt.Errorf("term %s end: %w", t.Name, err)
	}
	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		return domain.Term{}, fmt.Errorf("term %s: %w", t.Name, err)
	}
	return domain.Term{Name: t.Name, Range: rng}, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
