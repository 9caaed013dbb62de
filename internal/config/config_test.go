package config

import (
	"testing"
	"time"
)

func validConfig(env string) Config {
	return Config{
		App:    AppConfig{Env: env, Port: 8080},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "tikozap", SSLMode: ""},
		Redis:  RedisConfig{Host: "localhost", Port: 6379},
		Auth:   AuthConfig{JWTSecret: "secret", JWTIssuer: "tikozap", JWTAudience: "dashboard"},
		Twilio: TwilioConfig{AccountSID: "AC123", AuthToken: "token"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig("production")
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_TwilioCredentialsRequired(t *testing.T) {
	c := validConfig("local")
	c.Twilio.AuthToken = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing TWILIO_AUTH_TOKEN")
	}

	c = validConfig("local")
	c.Twilio.AccountSID = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing TWILIO_ACCOUNT_SID")
	}
}

func TestValidate_OpenAIKeyOptional(t *testing.T) {
	c := validConfig("local")
	c.OpenAI.APIKey = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error without OPENAI_API_KEY, got %v", err)
	}
}

func TestValidate_RateLimitDefaults(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.RateLimit.DemoLimit != 30 {
		t.Fatalf("expected default demo limit 30, got %d", c.RateLimit.DemoLimit)
	}
	if c.RateLimit.DemoWindow != time.Minute {
		t.Fatalf("expected default demo window 1m, got %v", c.RateLimit.DemoWindow)
	}
	if c.RateLimit.ConfigLimit != 120 {
		t.Fatalf("expected default config limit 120, got %d", c.RateLimit.ConfigLimit)
	}
	if c.RateLimit.ConfigWindow != time.Minute {
		t.Fatalf("expected default config window 1m, got %v", c.RateLimit.ConfigWindow)
	}
}

func TestValidate_BaseURLMustHaveScheme(t *testing.T) {
	c := validConfig("local")
	c.App.BaseURL = "app.tikozap.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for APP_BASE_URL without scheme")
	}
}
