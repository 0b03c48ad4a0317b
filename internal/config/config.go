// Package config carga la configuración del servicio: YAML primero,
// variables de entorno pisan al YAML, defaults para lo que falte.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr          string `yaml:"addr"`
		ShutdownGrace string `yaml:"shutdown_grace"`
	} `yaml:"server"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		Audience   string `yaml:"audience"`
		SecretName string `yaml:"secret_name"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		Cookie struct {
			AccessName  string `yaml:"access_name"`
			RefreshName string `yaml:"refresh_name"`
			Domain      string `yaml:"domain"`
			SameSite    string `yaml:"samesite"`
			Secure      bool   `yaml:"secure"`
		} `yaml:"cookie"`
		Throttle struct {
			MaxAttempts int    `yaml:"max_attempts"`
			Window      string `yaml:"window"`
		} `yaml:"throttle"`
		RoleCacheTTL string `yaml:"role_cache_ttl"`
		// SessionSweepEvery: frecuencia del barrido de sesiones vencidas.
		SessionSweepEvery string `yaml:"session_sweep_every"`
		// MaxConcurrentHashes acota los argon2 en vuelo.
		MaxConcurrentHashes int `yaml:"max_concurrent_hashes"`
	} `yaml:"auth"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`
}

// Load lee el YAML (opcional: path vacío usa solo defaults+env), aplica
// defaults y overrides de entorno, y valida las duraciones.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownGrace == "" {
		c.Server.ShutdownGrace = "15s"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "tenantcore"
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "tenantcore-api"
	}
	if c.JWT.SecretName == "" {
		c.JWT.SecretName = "jwt_signing"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "10m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "336h" // 14d
	}
	if c.Auth.Cookie.AccessName == "" {
		c.Auth.Cookie.AccessName = "__tc_at"
	}
	if c.Auth.Cookie.RefreshName == "" {
		c.Auth.Cookie.RefreshName = "__tc_rt"
	}
	if c.Auth.Cookie.SameSite == "" {
		c.Auth.Cookie.SameSite = "lax"
	}
	if c.Auth.Throttle.MaxAttempts == 0 {
		c.Auth.Throttle.MaxAttempts = 5
	}
	if c.Auth.Throttle.Window == "" {
		c.Auth.Throttle.Window = "10m"
	}
	if c.Auth.RoleCacheTTL == "" {
		c.Auth.RoleCacheTTL = "5m"
	}
	if c.Auth.SessionSweepEvery == "" {
		c.Auth.SessionSweepEvery = "1h"
	}
	if c.Auth.MaxConcurrentHashes == 0 {
		c.Auth.MaxConcurrentHashes = 8
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	c.applyEnvOverrides()

	// Guardia dura: prod exige cookies Secure.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Auth.Cookie.Secure = true
	}

	for name, s := range map[string]string{
		"server.shutdown_grace":    c.Server.ShutdownGrace,
		"jwt.access_ttl":           c.JWT.AccessTTL,
		"jwt.refresh_ttl":          c.JWT.RefreshTTL,
		"auth.throttle.window":     c.Auth.Throttle.Window,
		"auth.role_cache_ttl":      c.Auth.RoleCacheTTL,
		"auth.session_sweep_every": c.Auth.SessionSweepEvery,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}

	return &c, nil
}

// Duration parsea una duración ya validada por Load.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_SHUTDOWN_GRACE"); ok {
		c.Server.ShutdownGrace = v
	}

	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_AUDIENCE"); ok {
		c.JWT.Audience = v
	}
	if v, ok := getEnvStr("JWT_SECRET_NAME"); ok {
		c.JWT.SecretName = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}

	if v, ok := getEnvStr("AUTH_COOKIE_ACCESS_NAME"); ok {
		c.Auth.Cookie.AccessName = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_REFRESH_NAME"); ok {
		c.Auth.Cookie.RefreshName = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_DOMAIN"); ok {
		c.Auth.Cookie.Domain = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_SAMESITE"); ok {
		c.Auth.Cookie.SameSite = v
	}
	if v, ok := getEnvBool("AUTH_COOKIE_SECURE"); ok {
		c.Auth.Cookie.Secure = v
	}
	if v, ok := getEnvInt("AUTH_THROTTLE_MAX_ATTEMPTS"); ok {
		c.Auth.Throttle.MaxAttempts = v
	}
	if v, ok := getEnvStr("AUTH_THROTTLE_WINDOW"); ok {
		c.Auth.Throttle.Window = v
	}
	if v, ok := getEnvStr("AUTH_ROLE_CACHE_TTL"); ok {
		c.Auth.RoleCacheTTL = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_SWEEP_EVERY"); ok {
		c.Auth.SessionSweepEvery = v
	}
	if v, ok := getEnvInt("AUTH_MAX_CONCURRENT_HASHES"); ok {
		c.Auth.MaxConcurrentHashes = v
	}

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}
}
