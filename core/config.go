package core

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultRefreshPath        = "/auth/refresh"
	DefaultRefreshTokenField  = "accessToken"
	DefaultAuthHeader         = "Authorization"
	DefaultAuthScheme         = "Bearer"
	DefaultErrorMessage       = "An unexpected error occurred"
	DefaultRenewalTimeout     = 15 * time.Second
	DefaultTransportTimeout   = 30 * time.Second
	DefaultTransportKind      = "rest"
	DefaultResponseBodyLimit  = int64(10 << 20)
	DefaultRetryWaitMin       = 250 * time.Millisecond
	DefaultRetryWaitMax       = 2 * time.Second
	defaultUnauthorizedStatus = http.StatusUnauthorized
)

type AuthConfig struct {
	RefreshPath          string        `koanf:"refresh_path" mapstructure:"refresh_path"`
	RefreshMethod        string        `koanf:"refresh_method" mapstructure:"refresh_method"`
	TokenField           string        `koanf:"token_field" mapstructure:"token_field"`
	HeaderName           string        `koanf:"header_name" mapstructure:"header_name"`
	Scheme               string        `koanf:"scheme" mapstructure:"scheme"`
	UnauthorizedStatuses []int         `koanf:"unauthorized_statuses" mapstructure:"unauthorized_statuses"`
	RenewalTimeout       time.Duration `koanf:"renewal_timeout" mapstructure:"renewal_timeout"`
}

type TransportConfig struct {
	Kind                 string        `koanf:"kind" mapstructure:"kind"`
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	RetryMax             int           `koanf:"retry_max" mapstructure:"retry_max"`
	RetryWaitMin         time.Duration `koanf:"retry_wait_min" mapstructure:"retry_wait_min"`
	RetryWaitMax         time.Duration `koanf:"retry_wait_max" mapstructure:"retry_wait_max"`
	DisableCookieJar     bool          `koanf:"disable_cookie_jar" mapstructure:"disable_cookie_jar"`
	// RateLimit caps outgoing requests per second, renewal calls included.
	// Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" mapstructure:"rate_burst"`
}

type ErrorsConfig struct {
	DefaultMessage string `koanf:"default_message" mapstructure:"default_message"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string          `koanf:"base_url" mapstructure:"base_url"`
	Auth        AuthConfig      `koanf:"auth" mapstructure:"auth"`
	Transport   TransportConfig `koanf:"transport" mapstructure:"transport"`
	Errors      ErrorsConfig    `koanf:"errors" mapstructure:"errors"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "reauth",
		Auth: AuthConfig{
			RefreshPath:          DefaultRefreshPath,
			RefreshMethod:        http.MethodPost,
			TokenField:           DefaultRefreshTokenField,
			HeaderName:           DefaultAuthHeader,
			Scheme:               DefaultAuthScheme,
			UnauthorizedStatuses: []int{defaultUnauthorizedStatus},
			RenewalTimeout:       DefaultRenewalTimeout,
		},
		Transport: TransportConfig{
			Kind:                 DefaultTransportKind,
			Timeout:              DefaultTransportTimeout,
			MaxResponseBodyBytes: DefaultResponseBodyLimit,
			RetryWaitMin:         DefaultRetryWaitMin,
			RetryWaitMax:         DefaultRetryWaitMax,
		},
		Errors: ErrorsConfig{
			DefaultMessage: DefaultErrorMessage,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Auth.RefreshPath) == "" {
		return fmt.Errorf("core: auth.refresh_path is required")
	}
	if strings.TrimSpace(c.Auth.TokenField) == "" {
		return fmt.Errorf("core: auth.token_field is required")
	}
	for _, status := range c.Auth.UnauthorizedStatuses {
		if status < 400 || status > 599 {
			return fmt.Errorf("core: auth.unauthorized_statuses contains invalid status %d", status)
		}
	}
	if c.Auth.RenewalTimeout < 0 {
		return fmt.Errorf("core: auth.renewal_timeout must not be negative")
	}
	if c.Transport.RetryMax < 0 {
		return fmt.Errorf("core: transport.retry_max must not be negative")
	}
	if c.Transport.RateLimit < 0 || c.Transport.RateBurst < 0 {
		return fmt.Errorf("core: transport rate limits must not be negative")
	}
	return nil
}

// normalized fills zero values with defaults so partially populated
// runtime configs behave like DefaultConfig.
func (c Config) normalized() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = defaults.ServiceName
	}
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if strings.TrimSpace(c.Auth.RefreshPath) == "" {
		c.Auth.RefreshPath = defaults.Auth.RefreshPath
	}
	if strings.TrimSpace(c.Auth.RefreshMethod) == "" {
		c.Auth.RefreshMethod = defaults.Auth.RefreshMethod
	}
	c.Auth.RefreshMethod = strings.ToUpper(strings.TrimSpace(c.Auth.RefreshMethod))
	if strings.TrimSpace(c.Auth.TokenField) == "" {
		c.Auth.TokenField = defaults.Auth.TokenField
	}
	if strings.TrimSpace(c.Auth.HeaderName) == "" {
		c.Auth.HeaderName = defaults.Auth.HeaderName
	}
	if len(c.Auth.UnauthorizedStatuses) == 0 {
		c.Auth.UnauthorizedStatuses = append([]int(nil), defaults.Auth.UnauthorizedStatuses...)
	}
	if c.Auth.RenewalTimeout <= 0 {
		c.Auth.RenewalTimeout = defaults.Auth.RenewalTimeout
	}
	if strings.TrimSpace(c.Transport.Kind) == "" {
		c.Transport.Kind = defaults.Transport.Kind
	}
	if c.Transport.Timeout <= 0 {
		c.Transport.Timeout = defaults.Transport.Timeout
	}
	if c.Transport.MaxResponseBodyBytes <= 0 {
		c.Transport.MaxResponseBodyBytes = defaults.Transport.MaxResponseBodyBytes
	}
	if c.Transport.RetryWaitMin <= 0 {
		c.Transport.RetryWaitMin = defaults.Transport.RetryWaitMin
	}
	if c.Transport.RetryWaitMax <= 0 {
		c.Transport.RetryWaitMax = defaults.Transport.RetryWaitMax
	}
	if strings.TrimSpace(c.Errors.DefaultMessage) == "" {
		c.Errors.DefaultMessage = defaults.Errors.DefaultMessage
	}
	return c
}
