package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL                  string  `yaml:"ttl"`
		MaxParticipants      int     `yaml:"maxParticipants"`
		TimeLimit            float64 `yaml:"timeLimit"`
		DefaultQuestionCount int     `yaml:"defaultQuestionCount"`
		MaxQuestionCount     int     `yaml:"maxQuestionCount"`
		BankTTL              string  `yaml:"bankTTL"`
		OpTimeout            string  `yaml:"opTimeout"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; the service then runs on defaults and env.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects values that would silently misconfigure the service.
func (c Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"quiz.ttl":       c.Quiz.TTL,
		"quiz.bankTTL":   c.Quiz.BankTTL,
		"quiz.opTimeout": c.Quiz.OpTimeout,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, raw))
		}
	}
	if c.Quiz.MaxParticipants < 0 {
		errs = append(errs, fmt.Errorf("quiz.maxParticipants must not be negative"))
	}
	if c.Quiz.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("quiz.timeLimit must not be negative"))
	}
	if c.Quiz.DefaultQuestionCount < 0 || c.Quiz.MaxQuestionCount < 0 {
		errs = append(errs, fmt.Errorf("quiz question counts must not be negative"))
	}
	if c.Quiz.MaxQuestionCount > 0 && c.Quiz.DefaultQuestionCount > c.Quiz.MaxQuestionCount {
		errs = append(errs, fmt.Errorf("quiz.defaultQuestionCount %d exceeds maxQuestionCount %d",
			c.Quiz.DefaultQuestionCount, c.Quiz.MaxQuestionCount))
	}
	return errors.Join(errs...)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
