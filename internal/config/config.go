package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "NEURO_TENDER_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	modelBaseURLEnv     = "MODEL_BASE_URL"
	ocrEndpointEnv      = "OCR_ENDPOINT"
	uploadUsernameEnv   = "DOCUMENTOLOG_USERNAME"
	uploadPasswordEnv   = "DOCUMENTOLOG_PASSWORD"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	defaultPortalURL    = "https://goszakup.gov.kz"
	defaultUploadURL    = "https://portal.documentolog.kz/webservice/json/create_tented"
	defaultModelName    = "llama3:8b-instruct-q5_K_M"
	defaultModelBaseURL = "http://dgollama:11434"
)

// Config holds the settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Scraping      ScrapingConfig     `yaml:"scraping"`
	Model         ModelConfig        `yaml:"model"`
	OCR           OCRConfig          `yaml:"ocr"`
	Document      DocumentConfig     `yaml:"document"`
	Upload        UploadConfig       `yaml:"upload"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig controls console level and the rotating log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// StorageConfig sets the on-disk layout for downloaded documents.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// ScrapingConfig drives the portal search and the shared HTTP client.
type ScrapingConfig struct {
	CountRecord       int     `yaml:"countRecord"`
	FinancialYear     int     `yaml:"financialYear"`
	AmountFrom        int     `yaml:"amountFrom"`
	RequestDelaySec   float64 `yaml:"requestDelaySec"`
	MaxRetries        int     `yaml:"maxRetries"`
	RetryDelaySec     float64 `yaml:"retryDelaySec"`
	DownloadPauseSec  float64 `yaml:"downloadPauseSec"`
	TimeoutSec        float64 `yaml:"timeoutSec"`
	RateLimitPauseSec float64 `yaml:"rateLimitPauseSec"`
}

// RequestDelay is the politeness pause between page fetches.
func (s ScrapingConfig) RequestDelay() time.Duration { return seconds(s.RequestDelaySec) }

// RetryDelay is the pause between failed attempts.
func (s ScrapingConfig) RetryDelay() time.Duration { return seconds(s.RetryDelaySec) }

// DownloadPause is the pacing delay before each file body download.
func (s ScrapingConfig) DownloadPause() time.Duration { return seconds(s.DownloadPauseSec) }

// Timeout bounds a single HTTP request.
func (s ScrapingConfig) Timeout() time.Duration { return seconds(s.TimeoutSec) }

// RateLimitPause is the fixed cooldown applied after a 429 response.
func (s ScrapingConfig) RateLimitPause() time.Duration { return seconds(s.RateLimitPauseSec) }

// ModelConfig defines how to contact the inference endpoint.
type ModelConfig struct {
	Name          string  `yaml:"name"`
	BaseURL       string  `yaml:"baseUrl"`
	Temperature   float64 `yaml:"temperature"`
	Seed          int     `yaml:"seed"`
	TimeoutSec    float64 `yaml:"timeoutSec"`
	MaxRetries    int     `yaml:"maxRetries"`
	RetryDelaySec float64 `yaml:"retryDelaySec"`
}

// Timeout bounds a single model call.
func (m ModelConfig) Timeout() time.Duration { return seconds(m.TimeoutSec) }

// RetryDelay is the pause between failed model calls.
func (m ModelConfig) RetryDelay() time.Duration { return seconds(m.RetryDelaySec) }

// OCRConfig describes the remote text-recognition service.
type OCRConfig struct {
	Endpoint   string  `yaml:"endpoint"`
	Languages  string  `yaml:"languages"`
	TimeoutSec float64 `yaml:"timeoutSec"`
}

// Timeout bounds a single recognition call.
func (o OCRConfig) Timeout() time.Duration { return seconds(o.TimeoutSec) }

// DocumentConfig tunes text extraction and the keyword gate.
type DocumentConfig struct {
	ChunkSize           int      `yaml:"chunkSize"`
	MaxChunks           int      `yaml:"maxChunks"`
	KeywordThreshold    int      `yaml:"keywordThreshold"`
	SupportedExtensions []string `yaml:"supportedExtensions"`
	CyrillicThreshold   float64  `yaml:"cyrillicThreshold"`
}

// UploadConfig wires the intake system endpoint and credentials.
type UploadConfig struct {
	URL        string  `yaml:"url"`
	Username   string  `yaml:"username"`
	Password   string  `yaml:"password"`
	TimeoutSec float64 `yaml:"timeoutSec"`
	MaxRetries int     `yaml:"maxRetries"`
}

// Timeout bounds a single upload request.
func (u UploadConfig) Timeout() time.Duration { return seconds(u.TimeoutSec) }

// DatabaseConfig describes the optional audit database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig enables recurring runs; disabled means run once and exit.
type SchedulerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	IntervalSec float64 `yaml:"intervalSec"`
}

// Interval between recurring runs.
func (s SchedulerConfig) Interval() time.Duration { return seconds(s.IntervalSec) }

// NotificationConfig encapsulates outbound run-report channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run reports.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SiteConfig describes a single source portal with its parsing strategy.
type SiteConfig struct {
	Name            string  `yaml:"name"`
	BaseURL         string  `yaml:"baseUrl"`
	SearchURL       string  `yaml:"searchUrl"`
	Parser          string  `yaml:"parser"`
	Enabled         bool    `yaml:"enabled"`
	RequestDelaySec float64 `yaml:"requestDelaySec"`
	MaxRetries      int     `yaml:"maxRetries"`
	RetryDelaySec   float64 `yaml:"retryDelaySec"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}
	for i := range cfg.Sites {
		if cfg.Sites[i].SearchURL == "" {
			cfg.Sites[i].SearchURL = SearchURL(cfg.Sites[i].BaseURL, cfg.Scraping)
		}
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(modelBaseURLEnv); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv(ocrEndpointEnv); v != "" {
		c.OCR.Endpoint = v
	}
	if v := os.Getenv(uploadUsernameEnv); v != "" {
		c.Upload.Username = v
	}
	if v := os.Getenv(uploadPasswordEnv); v != "" {
		c.Upload.Password = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}
	if override.Logging.MaxSizeMB > 0 {
		base.Logging.MaxSizeMB = override.Logging.MaxSizeMB
	}
	if override.Logging.MaxBackups > 0 {
		base.Logging.MaxBackups = override.Logging.MaxBackups
	}
	if override.Logging.MaxAgeDays > 0 {
		base.Logging.MaxAgeDays = override.Logging.MaxAgeDays
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}

	if override.Scraping.CountRecord > 0 {
		base.Scraping.CountRecord = override.Scraping.CountRecord
	}
	if override.Scraping.FinancialYear > 0 {
		base.Scraping.FinancialYear = override.Scraping.FinancialYear
	}
	if override.Scraping.AmountFrom > 0 {
		base.Scraping.AmountFrom = override.Scraping.AmountFrom
	}
	if override.Scraping.RequestDelaySec > 0 {
		base.Scraping.RequestDelaySec = override.Scraping.RequestDelaySec
	}
	if override.Scraping.MaxRetries > 0 {
		base.Scraping.MaxRetries = override.Scraping.MaxRetries
	}
	if override.Scraping.RetryDelaySec > 0 {
		base.Scraping.RetryDelaySec = override.Scraping.RetryDelaySec
	}
	if override.Scraping.DownloadPauseSec > 0 {
		base.Scraping.DownloadPauseSec = override.Scraping.DownloadPauseSec
	}
	if override.Scraping.TimeoutSec > 0 {
		base.Scraping.TimeoutSec = override.Scraping.TimeoutSec
	}
	if override.Scraping.RateLimitPauseSec > 0 {
		base.Scraping.RateLimitPauseSec = override.Scraping.RateLimitPauseSec
	}

	if override.Model.Name != "" {
		base.Model.Name = override.Model.Name
	}
	if override.Model.BaseURL != "" {
		base.Model.BaseURL = override.Model.BaseURL
	}
	if override.Model.Temperature > 0 {
		base.Model.Temperature = override.Model.Temperature
	}
	if override.Model.Seed > 0 {
		base.Model.Seed = override.Model.Seed
	}
	if override.Model.TimeoutSec > 0 {
		base.Model.TimeoutSec = override.Model.TimeoutSec
	}
	if override.Model.MaxRetries > 0 {
		base.Model.MaxRetries = override.Model.MaxRetries
	}
	if override.Model.RetryDelaySec > 0 {
		base.Model.RetryDelaySec = override.Model.RetryDelaySec
	}

	if override.OCR.Endpoint != "" {
		base.OCR.Endpoint = override.OCR.Endpoint
	}
	if override.OCR.Languages != "" {
		base.OCR.Languages = override.OCR.Languages
	}
	if override.OCR.TimeoutSec > 0 {
		base.OCR.TimeoutSec = override.OCR.TimeoutSec
	}

	if override.Document.ChunkSize > 0 {
		base.Document.ChunkSize = override.Document.ChunkSize
	}
	if override.Document.MaxChunks > 0 {
		base.Document.MaxChunks = override.Document.MaxChunks
	}
	if override.Document.KeywordThreshold > 0 {
		base.Document.KeywordThreshold = override.Document.KeywordThreshold
	}
	if len(override.Document.SupportedExtensions) > 0 {
		base.Document.SupportedExtensions = override.Document.SupportedExtensions
	}
	if override.Document.CyrillicThreshold > 0 {
		base.Document.CyrillicThreshold = override.Document.CyrillicThreshold
	}

	if override.Upload.URL != "" {
		base.Upload.URL = override.Upload.URL
	}
	if override.Upload.Username != "" {
		base.Upload.Username = override.Upload.Username
	}
	if override.Upload.Password != "" {
		base.Upload.Password = override.Upload.Password
	}
	if override.Upload.TimeoutSec > 0 {
		base.Upload.TimeoutSec = override.Upload.TimeoutSec
	}
	if override.Upload.MaxRetries > 0 {
		base.Upload.MaxRetries = override.Upload.MaxRetries
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.IntervalSec > 0 {
		base.Scheduler.IntervalSec = override.Scheduler.IntervalSec
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	scraping := ScrapingConfig{
		CountRecord:       2000,
		FinancialYear:     time.Now().Year(),
		AmountFrom:        100000,
		RequestDelaySec:   2,
		MaxRetries:        3,
		RetryDelaySec:     5,
		DownloadPauseSec:  3,
		TimeoutSec:        30,
		RateLimitPauseSec: 60,
	}
	return Config{
		Logging: LoggingConfig{
			Level:      "info",
			File:       "log/logs.log",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Storage:  StorageConfig{DataDir: "cnt/goszakup.gov.kz"},
		Scraping: scraping,
		Model: ModelConfig{
			Name:          defaultModelName,
			BaseURL:       defaultModelBaseURL,
			Temperature:   0.1,
			Seed:          12,
			TimeoutSec:    30,
			MaxRetries:    3,
			RetryDelaySec: 5,
		},
		OCR: OCRConfig{
			Languages:  "kaz+rus+eng",
			TimeoutSec: 120,
		},
		Document: DocumentConfig{
			ChunkSize:           3000,
			MaxChunks:           5,
			KeywordThreshold:    2,
			SupportedExtensions: []string{".docx", ".pdf"},
			CyrillicThreshold:   0.4,
		},
		Upload: UploadConfig{
			URL:        defaultUploadURL,
			Username:   "documentolog",
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		Scheduler: SchedulerConfig{Enabled: false, IntervalSec: 86400},
		Sites: []SiteConfig{
			{
				Name:            "goszakup.gov.kz",
				BaseURL:         defaultPortalURL,
				Parser:          "goszakup",
				Enabled:         true,
				RequestDelaySec: scraping.RequestDelaySec,
				MaxRetries:      scraping.MaxRetries,
				RetryDelaySec:   scraping.RetryDelaySec,
			},
		},
	}
}

// SearchURL builds the announce-search URL with the configured year, status
// and amount filters applied.
func SearchURL(baseURL string, s ScrapingConfig) string {
	if baseURL == "" {
		baseURL = defaultPortalURL
	}

	q := url.Values{}
	q.Set("filter[name]", "")
	q.Set("filter[customer]", "")
	q.Set("filter[number]", "")
	q.Set("filter[year]", fmt.Sprintf("%d", s.FinancialYear))
	for _, status := range []string{"210", "230", "280", "220", "240", "245"} {
		q.Add("filter[status][]", status)
	}
	q.Set("filter[amount_from]", fmt.Sprintf("%d", s.AmountFrom))
	q.Set("filter[amount_to]", "")
	q.Set("filter[trade_type]", "")
	q.Set("filter[type]", "")
	q.Set("smb", "")
	q.Set("count_record", fmt.Sprintf("%d", s.CountRecord))

	return baseURL + "/ru/search/announce?" + q.Encode()
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
