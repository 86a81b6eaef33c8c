// Package container wires the bot's services with samber/do.
package container

import (
	"fmt"
	"time"
)

// Options is the command line and environment configuration. Every field is
// also read from SERVICE_<NAME>, for example SERVICE_TELEGRAM_TOKEN.
type Options struct {
	Port                  int    `default:"8888"                                              help:"Port for the liveness and metrics server"              short:"p"`
	TelegramToken         string `default:""                                                  help:"Telegram Bot API token"                                short:"t"`
	LogFormat             string `default:"json"                                              help:"Log format: json or console"`
	LogLevel              string `default:"info"                                              help:"Log level: debug, info, warn or error"`
	Store                 string `default:"file"                                              help:"Token store: memory, file, redis or postgres"          short:"s"`
	StorePath             string `default:"database.json"                                     help:"Path of the file token store"`
	RedisAddr             string `default:"localhost:6379"                                    help:"Redis server address"                                  short:"r"`
	DatabaseURL           string `default:"postgres://localhost:5432/linkbot?sslmode=disable" help:"Postgres connection URL"`
	CacheTTL              string `default:"0s"                                                help:"Redis read cache TTL in front of postgres, 0 disables"`
	ShortenerURL          string `default:"https://jalwagame.42web.io/api"                    help:"Shortener API endpoint"`
	ShortenTimeout        string `default:"10s"                                               help:"Timeout of one shortener call"`
	BareDomains           bool   `default:"true"                                              help:"Detect bare domains such as example.com"`
	Substitution          string `default:"positional"                                        help:"Substitution: positional or first-occurrence"`
	NoticeMode            string `default:"per-message"                                       help:"Missing token notices: per-message or per-link"`
	LinkConcurrency       int    `default:"1"                                                 help:"Links of one message shortened at once"`
	MaxConcurrentMessages int    `default:"16"                                                help:"Messages handled at once"`
	Bus                   string `default:"memory"                                            help:"Outbound bus: memory or redis"`
	ConsumerName          string `default:"delivery-1"                                        help:"Redis stream consumer name of this process"`
}

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	BusMemory = "memory"
	BusRedis  = "redis"

	deliveryConsumerGroup = "linkbot-delivery"
)

func (o *Options) redisCacheEnabled() bool {
	ttl, err := parseDuration("cache ttl", o.CacheTTL)

	return o.Store == StorePostgres && err == nil && ttl > 0
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}

	return d, nil
}
