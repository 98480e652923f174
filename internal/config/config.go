package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	TelegramAPIToken string        `env:"TOKEN,required"`
	ChannelID        int64         `env:"CHANNEL_ID,required"`
	OwnerID          int64         `env:"OWNER_ID,required"`
	DefaultLanguage  string        `env:"LANG,default=ru"`
	EnabledHandlers  []string      `env:"HANDLERS,default=admin,submission"`
	LogLevel         int           `env:"LOG_LEVEL,default=4"`
	DotPath          string        `env:"DOT_PATH,default=~/.chanrelay"`
	BanwordsPath     string        `env:"BANWORDS_PATH,default=banwords.json"`
	QueueSize        int           `env:"QUEUE_SIZE,default=100"`
	PacingDelay      time.Duration `env:"PACING_DELAY,default=2s"`
	SendTimeout      time.Duration `env:"SEND_TIMEOUT,default=1m"`
	MetricsAddr      string        `env:"METRICS_ADDR,default=:2112"`
}

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("RB_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
