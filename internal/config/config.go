package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultCities is the city list used when neither the CITIES env var nor
// config/cities.yaml provides one.
var defaultCities = []string{"Philadelphia", "Seattle", "New York"}

// Config holds everything the dashboard needs for one run. Constructed once
// at startup and passed by reference; never mutated afterwards.
type Config struct {
	WeatherAPIKey string
	WeatherAPIURL string

	BucketName string
	TableName  string
	AWSRegion  string

	HTTPTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	Cities []string
}

type citiesFile struct {
	Cities []string `yaml:"cities"`
}

// Load reads configuration from the environment, honoring a .env file in the
// working directory if present. All cloud settings are required; a missing
// one fails startup before any city is processed.
func Load() (*Config, error) {
	// Same behavior as the original tooling around this job: .env is a
	// convenience for local runs, real deployments set the environment.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.WeatherAPIKey = strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("config: OPENWEATHER_API_KEY is required")
	}

	cfg.BucketName = strings.TrimSpace(os.Getenv("AWS_BUCKET_NAME"))
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("config: AWS_BUCKET_NAME is required")
	}

	// The AWS SDK resolves credentials itself; we only verify they are
	// present so a misconfigured run fails up front instead of on the
	// first PutObject.
	for _, key := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION"} {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			return nil, fmt.Errorf("config: %s is required", key)
		}
	}
	cfg.AWSRegion = strings.TrimSpace(os.Getenv("AWS_REGION"))

	cfg.WeatherAPIURL = strings.TrimSpace(os.Getenv("OPENWEATHER_API_URL"))
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5"
	}
	cfg.WeatherAPIURL = strings.TrimRight(cfg.WeatherAPIURL, "/")

	cfg.TableName = strings.TrimSpace(os.Getenv("DYNAMO_TABLE_NAME"))
	if cfg.TableName == "" {
		cfg.TableName = "WeatherForecasts"
	}

	cfg.HTTPTimeout = parseDuration(os.Getenv("HTTP_TIMEOUT"), 10*time.Second)
	cfg.RateLimitRPS = parseFloat(os.Getenv("RATE_LIMIT_RPS"), 1)
	cfg.RateLimitBurst = parseInt(os.Getenv("RATE_LIMIT_BURST"), 5)

	cities, err := loadCities()
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCities resolves the city list: CITIES env wins, then
// config/cities.yaml, then the built-in default.
func loadCities() ([]string, error) {
	if raw := strings.TrimSpace(os.Getenv("CITIES")); raw != "" {
		var cities []string
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cities = append(cities, c)
			}
		}
		if len(cities) == 0 {
			return nil, fmt.Errorf("config: CITIES is set but contains no city names")
		}
		return cities, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	path := filepath.Join(cwd, "config", "cities.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return append([]string(nil), defaultCities...), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cf citiesFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cf.Cities) == 0 {
		return nil, fmt.Errorf("config: %s lists no cities", path)
	}
	return cf.Cities, nil
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseFloat(s string, defaultVal float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func parseInt(s string, defaultVal int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func validate(cfg *Config) error {
	if len(cfg.WeatherAPIKey) < 10 {
		return fmt.Errorf("config: OPENWEATHER_API_KEY appears invalid (too short)")
	}
	if len(cfg.Cities) == 0 {
		return fmt.Errorf("config: no cities to process")
	}
	return nil
}
