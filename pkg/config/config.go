package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "LOGBOOK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "LOGBOOK_APP_ENV"
	EnvPort         = "LOGBOOK_APP_PORT"
	EnvDBDSN        = "LOGBOOK_DB_DSN"
	EnvDBHost       = "LOGBOOK_DB_HOST"
	EnvDBUser       = "LOGBOOK_DB_USER"
	EnvDBName       = "LOGBOOK_DB_NAME"
	EnvRedisURL     = "LOGBOOK_REDIS_URL"
	EnvJWTSecret    = "LOGBOOK_JWT_SECRET"
	EnvJWTIssuer    = "LOGBOOK_JWT_ISSUER"
	EnvJWTExpMins   = "LOGBOOK_JWT_EXPIRATION_MINUTES"
	EnvOfficeLat    = "LOGBOOK_OFFICE_LAT"
	EnvOfficeLon    = "LOGBOOK_OFFICE_LON"
	EnvLateCutoff   = "LOGBOOK_LATE_CUTOFF"
	EnvAttendanceTZ = "LOGBOOK_ATTENDANCE_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Attendance    AttendanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Attendance.Validate(); err != nil {
		return nil, fmt.Errorf("attendance config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOGBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"LOGBOOK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LOGBOOK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOGBOOK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LOGBOOK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"LOGBOOK_DB_DSN"`

	LegacyHost     string `envconfig:"LOGBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"LOGBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOGBOOK_DB_USER"`
	LegacyPassword string `envconfig:"LOGBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOGBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOGBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOGBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOGBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOGBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOGBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"LOGBOOK_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
	ConnectTimeout     time.Duration `envconfig:"LOGBOOK_DB_CONNECT_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOGBOOK_REDIS_URL"`
	Address      string        `envconfig:"LOGBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"LOGBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOGBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOGBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOGBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOGBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOGBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOGBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LOGBOOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LOGBOOK_JWT_ISSUER" default:"logbook"`
	ExpirationMinutes      int    `envconfig:"LOGBOOK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"LOGBOOK_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// AccessTokenTTL returns the validity window of issued credentials.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LOGBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LOGBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LOGBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LOGBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LOGBOOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LOGBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LOGBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LOGBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LOGBOOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LOGBOOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LOGBOOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	GlobalPerMinute    int           `envconfig:"LOGBOOK_RATE_LIMIT_PER_MINUTE" default:"300"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOGBOOK_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LOGBOOK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// AttendanceConfig holds the geofence anchors and the lateness cutoff.
type AttendanceConfig struct {
	OfficeLat          float64 `envconfig:"LOGBOOK_OFFICE_LAT" required:"true"`
	OfficeLon          float64 `envconfig:"LOGBOOK_OFFICE_LON" required:"true"`
	OfficeRadiusMeters float64 `envconfig:"LOGBOOK_OFFICE_RADIUS_METERS" default:"400"`
	RemoteLat          float64 `envconfig:"LOGBOOK_REMOTE_LAT"`
	RemoteLon          float64 `envconfig:"LOGBOOK_REMOTE_LON"`
	RemoteRadiusMeters float64 `envconfig:"LOGBOOK_REMOTE_RADIUS_METERS" default:"50000"`
	LateCutoff         string  `envconfig:"LOGBOOK_LATE_CUTOFF" default:"09:10"`
	TimeZone           string  `envconfig:"LOGBOOK_ATTENDANCE_TIMEZONE" default:"UTC"`
}

// Validate reports every invalid attendance setting at once.
func (a AttendanceConfig) Validate() error {
	var err error
	if !validLatLon(a.OfficeLat, a.OfficeLon) {
		err = multierr.Append(err, fmt.Errorf("office anchor (%f, %f) is not a valid coordinate", a.OfficeLat, a.OfficeLon))
	}
	if !validLatLon(a.RemoteLat, a.RemoteLon) {
		err = multierr.Append(err, fmt.Errorf("remote anchor (%f, %f) is not a valid coordinate", a.RemoteLat, a.RemoteLon))
	}
	if a.OfficeRadiusMeters <= 0 {
		err = multierr.Append(err, fmt.Errorf("office radius must be positive, got %f", a.OfficeRadiusMeters))
	}
	if a.RemoteRadiusMeters <= 0 {
		err = multierr.Append(err, fmt.Errorf("remote radius must be positive, got %f", a.RemoteRadiusMeters))
	}
	if _, cutErr := a.Cutoff(); cutErr != nil {
		err = multierr.Append(err, cutErr)
	}
	if _, locErr := a.Location(); locErr != nil {
		err = multierr.Append(err, locErr)
	}
	return err
}

// Cutoff parses LateCutoff ("HH:MM") into an offset from local midnight.
func (a AttendanceConfig) Cutoff() (time.Duration, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(a.LateCutoff))
	if err != nil {
		return 0, fmt.Errorf("late cutoff %q must be HH:MM: %w", a.LateCutoff, err)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

// Location resolves the zone that defines the attendance calendar day.
func (a AttendanceConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("attendance timezone %q: %w", a.TimeZone, err)
	}
	return loc, nil
}

func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
