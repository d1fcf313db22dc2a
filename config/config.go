package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Scraper   ScraperConfig
	S3        S3Config
	DBPath    string
	LogLevel  string
	Cities    map[string]*CityConfig
}

type DatabaseConfig struct {
	URL string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	Headless    bool
	DelayMS     int
	ProxyURL    string
	UserDataDir string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// CityConfig drives which extraction strategy runs for a city and carries
// the per-portal deltas (element identifiers, tab sets, batch granularity)
// as data rather than code. Immutable at run time.
type CityConfig struct {
	City        string `yaml:"city"`
	State       string `yaml:"state"`
	URL         string `yaml:"url"`
	ScraperType string `yaml:"scraper_type"` // DAILY | MONTHLY | ID_BASED
	Enabled     bool   `yaml:"enabled"`
	Dialect     string `yaml:"dialect"` // accela | etrakit
	Portal      string `yaml:"portal"`  // accela | etrakit | pdf | spa

	// Element identifiers, keyed by role (start_date, end_date, search_button,
	// results_table, ...). Roles a portal lacks are simply absent.
	Selectors map[string]string `yaml:"selectors"`

	// ID_BASED portals: permit-number prefixes to sweep and batch geometry.
	Prefixes           []string `yaml:"prefixes"`
	SuffixDigits       int      `yaml:"suffix_digits"`
	MaxResultsPerBatch int      `yaml:"max_results_per_batch"`

	// eTRAKiT-style detail pages: tabs opened in sequence per permit.
	DetailTabs []string `yaml:"detail_tabs"`

	// SPA portals: login and jurisdiction selection.
	Username     string `yaml:"-"`
	Password     string `yaml:"-"`
	Jurisdiction string `yaml:"jurisdiction"`

	// MONTHLY portals: where the month-indexed report links live.
	ReportIndexURL string `yaml:"report_index_url"`

	SettleMS int `yaml:"settle_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Scraper: ScraperConfig{
			Headless:    os.Getenv("SCRAPER_HEADLESS") != "false",
			DelayMS:     getEnvInt("SCRAPE_DELAY_MS", 500),
			ProxyURL:    os.Getenv("SCRAPE_PROXY_URL"),
			UserDataDir: os.Getenv("BROWSER_DATA_DIR"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-west-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		DBPath:   getEnv("DB_PATH", "permitwatch.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Cities:   make(map[string]*CityConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadCityConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadCityConfigs() error {
	configDir := "config/cities"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var city CityConfig
		if err := yaml.Unmarshal(data, &city); err != nil {
			return err
		}

		// Portal credentials never live in the yaml files.
		envKey := envName(city.City)
		city.Username = os.Getenv("PORTAL_USER_" + envKey)
		city.Password = os.Getenv("PORTAL_PASS_" + envKey)

		c.Cities[city.City] = &city
	}

	return nil
}

// envName turns "Mountain View" into "MOUNTAIN_VIEW".
func envName(city string) string {
	out := make([]byte, 0, len(city))
	for i := 0; i < len(city); i++ {
		ch := city[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			out = append(out, ch-'a'+'A')
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
