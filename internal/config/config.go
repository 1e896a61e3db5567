package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBDSN      string

	JWTSecret string
	JWTTTL    time.Duration

	NatsURL    string
	NatsStream string

	WSRateLimit    int
	WSEventTimeout time.Duration
	WSSendBuffer   int

	LogLevel string
	LogFile  string

	CORSOrigins []string
}

// Legacy environment names that predate the dotted keys.
var envAliases = map[string]string{
	"server.port": "SERVER_PORT",
	"db.host":     "DB_HOST",
	"db.port":     "DB_PORT",
	"db.user":     "DB_USER",
	"db.password": "DB_PASSWORD",
	"db.name":     "DB_NAME",
	"jwt.secret":  "JWT_SECRET",
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "parley")
	v.SetDefault("db.password", "parley_dev_password")
	v.SetDefault("db.name", "parley")
	v.SetDefault("db.dsn", "")
	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.stream", "PARLEY")
	v.SetDefault("ws.rate_limit", 20)
	v.SetDefault("ws.event_timeout", "10s")
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("cors.origins", []string{})
}

// Init prepares v for Load: defaults, the optional config file, and
// environment lookup (PARLEY_DB_HOST style plus the legacy names).
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix("parley")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, "PARLEY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return errors.Wrapf(err, "binding env for %s", key)
		}
	}

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading config file %s", cfgFile)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:     v.GetString("server.port"),
		DBDriver:       strings.ToLower(v.GetString("db.driver")),
		DBHost:         v.GetString("db.host"),
		DBPort:         v.GetString("db.port"),
		DBUser:         v.GetString("db.user"),
		DBPassword:     v.GetString("db.password"),
		DBName:         v.GetString("db.name"),
		DBDSN:          v.GetString("db.dsn"),
		JWTSecret:      v.GetString("jwt.secret"),
		JWTTTL:         v.GetDuration("jwt.ttl"),
		NatsURL:        v.GetString("nats.url"),
		NatsStream:     v.GetString("nats.stream"),
		WSRateLimit:    v.GetInt("ws.rate_limit"),
		WSEventTimeout: v.GetDuration("ws.event_timeout"),
		WSSendBuffer:   v.GetInt("ws.send_buffer"),
		LogLevel:       v.GetString("log.level"),
		LogFile:        v.GetString("log.file"),
		CORSOrigins:    v.GetStringSlice("cors.origins"),
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite", "mysql":
	default:
		return nil, errors.Errorf("unsupported db.driver %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "mysql" && cfg.DBDSN == "" {
		return nil, errors.New("db.dsn is required for mysql")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt.secret must not be empty")
	}

	return cfg, nil
}

// PostgresDSN builds a connection string from the discrete db.* keys unless
// db.dsn is set.
func (c *Config) PostgresDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
