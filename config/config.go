package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Regional centres first, then the larger towns.
var defaultCities = []string{
	"Минск", "Брест", "Витебск", "Гомель", "Гродно", "Могилёв",
	"Бобруйск", "Барановичи", "Борисов", "Пинск", "Орша", "Мозырь",
	"Солигорск", "Новополоцк", "Лида", "Молодечно", "Полоцк", "Жлобин",
	"Светлогорск", "Речица", "Слуцк", "Жодино", "Кобрин", "Слоним",
	"Волковыск", "Калинковичи", "Сморгонь", "Рогачёв", "Осиповичи",
	"Горки", "Новогрудок", "Берёза", "Марьина Горка", "Вилейка",
	"Мосты", "Дзержинск", "Лунинец", "Столбцы", "Глубокое", "Несвиж",
}

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"discountwatch.sqlite"`

	SupportedCities []string `env:"SUPPORTED_CITIES" envSeparator:","`

	Scrape struct {
		Hour        int           `env:"SCRAPE_HOUR" envDefault:"6"`
		Minute      int           `env:"SCRAPE_MINUTE" envDefault:"0"`
		Timeout     time.Duration `env:"SCRAPE_TIMEOUT" envDefault:"30s"`
		Concurrency int           `env:"SCRAPE_CONCURRENCY" envDefault:"4"`
		UserAgent   string        `env:"SCRAPE_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	}

	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	}

	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		ReportTo    string `env:"MAILGUN_REPORT_TO"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	env.Parse(cfg)

	if len(cfg.SupportedCities) == 0 {
		cfg.SupportedCities = defaultCities
	}
	if cfg.Scrape.Concurrency < 1 {
		cfg.Scrape.Concurrency = 1
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		cfg.log.Sugar().Infof("%s (write endpoints will not require auth)", err)
	}
	cfg.creds = creds

	return cfg
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) IsSupportedCity(city string) bool {
	for _, c := range cfg.SupportedCities {
		if c == city {
			return true
		}
	}
	return false
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar is not populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
