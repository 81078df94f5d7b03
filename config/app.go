package config

import "time"

type App struct {
	Port          string    `koanf:"port"`
	DatabaseURL   string    `koanf:"database_url"`
	JWTSecret     string    `koanf:"jwt_secret"`
	JWTTTLHours   int       `koanf:"jwt_ttl_hours"`
	Env           string    `koanf:"env"`
	ChatRateLimit int       `koanf:"chat_rate_limit"`
	Assistant     Assistant `koanf:"assistant"`
	Billing       Billing   `koanf:"billing"`
}

// Assistant points at an OpenAI-compatible chat-completion API. An empty
// APIKey leaves ranking and chat on their local fallbacks.
type Assistant struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type Billing struct {
	// SweepInterval is how often due monthly deductions are settled in the
	// background. Requests settle their own caller regardless.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

func defaults() App {
	return App{
		Port:          "8080",
		JWTTTLHours:   24,
		Env:           "dev",
		ChatRateLimit: 10,
		Assistant: Assistant{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 8 * time.Second,
		},
		Billing: Billing{SweepInterval: time.Hour},
	}
}

func (a App) Prod() bool { return a.Env == "prod" || a.Env == "production" }
