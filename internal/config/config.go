package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8006"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"change-this-secret"`

	ClerkSecretKey string `env:"CLERK_SECRET_KEY"`
	ClerkJWKSURL   string `env:"CLERK_JWKS_URL" envDefault:"https://organic-mayfly-21.clerk.accounts.dev/.well-known/jwks.json"`
	ClerkAPIURL    string `env:"CLERK_API_URL" envDefault:"https://api.clerk.com/v1"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY,required"`
	LLMBaseURL   string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel     string `env:"LLM_MODEL" envDefault:"gpt-4o"`

	ZohoClientID     string `env:"ZOHO_CLIENT_ID"`
	ZohoClientSecret string `env:"ZOHO_CLIENT_SECRET"`
	ZohoRefreshToken string `env:"ZOHO_REFRESH_TOKEN"`
	ZohoAccountsURL  string `env:"ZOHO_ACCOUNTS_URL" envDefault:"https://accounts.zoho.com"`
	ZohoAPIURL       string `env:"ZOHO_API_URL" envDefault:"https://www.zohoapis.com"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	SupportEmail string `env:"SUPPORT_EMAIL"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
