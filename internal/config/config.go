package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL   = "https://moodle.lsu.edu"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"
)

var ErrMissingField = errors.New("required configuration value is not set")

// MissingFieldError names the environment variable that failed validation.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is not set in .env file", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// Config holds the values needed to talk to one Moodle site as one logged-in grader.
type Config struct {
	BaseURL        string
	QuizReportURL  string
	Cookies        string
	UserAgent      string
	RequestTimeout time.Duration
	LogLevel       string
	DebugHTTP      bool
}

// Load reads configuration from the environment and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("moodle_base_url", DefaultBaseURL)
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("request_timeout_seconds", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("debug_http", false)

	timeoutSec := v.GetInt("request_timeout_seconds")
	if timeoutSec < 0 {
		return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT_SECONDS: %d", timeoutSec)
	}

	cfg := Config{
		BaseURL:        strings.TrimRight(v.GetString("moodle_base_url"), "/"),
		QuizReportURL:  strings.TrimSpace(v.GetString("quiz_report_url")),
		Cookies:        strings.TrimSpace(v.GetString("moodle_cookies")),
		UserAgent:      v.GetString("user_agent"),
		RequestTimeout: time.Duration(timeoutSec) * time.Second,
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		DebugHTTP:      v.GetBool("debug_http"),
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return cfg, nil
}

// Validate reports the first required value that is missing.
func (c Config) Validate() error {
	if c.QuizReportURL == "" {
		return &MissingFieldError{Field: "QUIZ_REPORT_URL"}
	}
	if c.Cookies == "" {
		return &MissingFieldError{Field: "MOODLE_COOKIES"}
	}
	return nil
}

// Headers returns the browser-like header set sent with every request.
func (c Config) Headers() http.Header {
	h := make(http.Header)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,"+
		"image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	h.Set("Accept-Language", "en,zh-CN;q=0.9,zh;q=0.8")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Cookie", c.Cookies)
	h.Set("Sec-Ch-Ua", `"Chromium";v="128", "Not;A=Brand";v="24", "Google Chrome";v="128"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"macOS"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("User-Agent", c.UserAgent)
	return h
}

// CommentURL is the per-(attempt, slot) manual grading form.
func (c Config) CommentURL(attempt, slot int) string {
	return fmt.Sprintf("%s/mod/quiz/comment.php?attempt=%d&slot=%d", c.BaseURL, attempt, slot)
}

// CommentEndpoint is where grading forms are posted.
func (c Config) CommentEndpoint() string {
	return c.BaseURL + "/mod/quiz/comment.php"
}
