package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	MetricsAddr   string
	MySQLDSN      string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	FieldsAPIBase string
	FieldsAPIKey  string
	FieldsAPIRPS  int
	BlocksFile    string
	Workers       int
	CacheTTL      time.Duration
	Blocks        Blocks
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/blocks?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisDB:       atoi("REDIS_DB", 0),
		RedisPass:     env("REDIS_PASSWORD", ""),
		FieldsAPIBase: env("FIELDS_API_BASE", ""),
		FieldsAPIKey:  env("FIELDS_API_KEY", ""),
		FieldsAPIRPS:  atoi("FIELDS_API_RPS", 5),
		BlocksFile:    env("BLOCKS_FILE", ""),
		Workers:       atoi("RENDER_WORKERS", 4),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}

	c.Blocks = DefaultBlocks()
	if c.BlocksFile != "" {
		b, err := LoadBlocks(c.BlocksFile)
		if err != nil {
			log.Warn().Err(err).Str("file", c.BlocksFile).Msg("blocks file unreadable, using defaults")
		} else {
			c.Blocks = b
		}
	}
	if c.FieldsAPIBase == "" {
		log.Debug().Msg("FIELDS_API_BASE is empty, cursor row source disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
