// Package config loads service configuration from the environment (optionally seeded
// from a local .env file) using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Manila on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/spf13/viper"
)

const envPrefix = "BOOKING"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the connection string understood by the GORM postgres driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// KafkaConfig holds broker and consumer settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds the geocode cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// GeocodingConfig configures the Nominatim adapter.
type GeocodingConfig struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	Language     string
	Limit        int
}

// RoutingConfig selects and configures the route provider.
type RoutingConfig struct {
	Provider        string // osrm, google or none
	OSRMBaseURL     string
	GoogleAPIKey    string
	Region          string
	MaxAlternatives int
}

// HTTPClientConfig bounds outbound provider calls.
type HTTPClientConfig struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// SessionConfig controls quote session expiry.
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	Location    *time.Location
	DBConfig    DatabaseConfig
	KafkaConfig KafkaConfig
	RedisConfig RedisConfig
	ServiceArea booking.Bounds
	Fare        booking.FarePolicy
	Geocoding   GeocodingConfig
	Routing     RoutingConfig
	HTTPClient  HTTPClientConfig
	Session     SessionConfig
}

// Load reads configuration from environment variables prefixed with BOOKING_. Values in
// a .env file in the working directory are loaded first; real environment variables win.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	cfg := &ServiceConfig{
		Port:     ":" + strings.TrimPrefix(v.GetString("service.port"), ":"),
		AppEnv:   v.GetString("app.env"),
		Location: loc,
		DBConfig: DatabaseConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		ServiceArea: booking.Bounds{
			North: v.GetFloat64("area.north"),
			South: v.GetFloat64("area.south"),
			East:  v.GetFloat64("area.east"),
			West:  v.GetFloat64("area.west"),
		},
		Fare: booking.FarePolicy{
			BaseFare:       v.GetFloat64("fare.base"),
			BaseKm:         v.GetFloat64("fare.base_km"),
			ExtraRatePerKm: v.GetFloat64("fare.extra_per_km"),
		},
		Geocoding: GeocodingConfig{
			BaseURL:      v.GetString("geocoding.base_url"),
			UserAgent:    v.GetString("geocoding.user_agent"),
			CountryCodes: v.GetString("geocoding.country_codes"),
			Language:     v.GetString("geocoding.language"),
			Limit:        v.GetInt("geocoding.limit"),
		},
		Routing: RoutingConfig{
			Provider:        strings.ToLower(v.GetString("routing.provider")),
			OSRMBaseURL:     v.GetString("routing.osrm_base_url"),
			GoogleAPIKey:    v.GetString("routing.google_api_key"),
			Region:          v.GetString("routing.region"),
			MaxAlternatives: v.GetInt("routing.max_alternatives"),
		},
		HTTPClient: HTTPClientConfig{
			Timeout:       v.GetDuration("http_client.timeout"),
			RetryAttempts: v.GetInt("http_client.retry_attempts"),
			RetryBackoff:  v.GetDuration("http_client.retry_backoff"),
		},
		Session: SessionConfig{
			IdleTTL:       v.GetDuration("session.idle_ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at request time.
func (c *ServiceConfig) Validate() error {
	var errs []error
	if err := c.ServiceArea.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("service area: %w", err))
	}
	if c.Fare.BaseFare < 0 || c.Fare.BaseKm < 0 || c.Fare.ExtraRatePerKm < 0 {
		errs = append(errs, errors.New("fare: values must not be negative"))
	}
	switch c.Routing.Provider {
	case "osrm", "none":
	case "google":
		if c.Routing.GoogleAPIKey == "" {
			errs = append(errs, errors.New("routing: google provider requires BOOKING_ROUTING_GOOGLE_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("routing: unknown provider %q", c.Routing.Provider))
	}
	if c.Geocoding.UserAgent == "" {
		errs = append(errs, errors.New("geocoding: user agent is required"))
	}
	if c.HTTPClient.Timeout <= 0 {
		errs = append(errs, errors.New("http client: timeout must be positive"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("timezone", "Asia/Manila")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "sakay_booking")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "sakay-")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 24*time.Hour)

	// Camarines Norte.
	v.SetDefault("area.north", 14.7)
	v.SetDefault("area.south", 13.9)
	v.SetDefault("area.east", 123.1)
	v.SetDefault("area.west", 122.5)

	def := booking.DefaultFarePolicy()
	v.SetDefault("fare.base", def.BaseFare)
	v.SetDefault("fare.base_km", def.BaseKm)
	v.SetDefault("fare.extra_per_km", def.ExtraRatePerKm)

	v.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.user_agent", "sakay-service-booking/1.0")
	v.SetDefault("geocoding.country_codes", "ph")
	v.SetDefault("geocoding.language", "en")
	v.SetDefault("geocoding.limit", 10)

	v.SetDefault("routing.provider", "osrm")
	v.SetDefault("routing.osrm_base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.google_api_key", "")
	v.SetDefault("routing.region", "ph")
	v.SetDefault("routing.max_alternatives", 2)

	v.SetDefault("http_client.timeout", 10*time.Second)
	v.SetDefault("http_client.retry_attempts", 2)
	v.SetDefault("http_client.retry_backoff", 200*time.Millisecond)

	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
