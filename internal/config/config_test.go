package config

import (
	"os"
	"testing"
)

func clearEnv() {
	os.Unsetenv("APP_PORT")
	os.Unsetenv("DATABASE_DSN")
	os.Unsetenv("APP_ENV")
	os.Unsetenv("WS_PING_INTERVAL_SECONDS")
	os.Unsetenv("RESEND_API_KEY")
	os.Unsetenv("CONTACT_INBOX")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Load() Port = %v, want 8080", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Errorf("Load() Env = %v, want dev", cfg.Env)
	}
	if cfg.PingIntervalSeconds != 10 {
		t.Errorf("Load() PingIntervalSeconds = %v, want 10", cfg.PingIntervalSeconds)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("APP_PORT", "9090")
	os.Setenv("DATABASE_DSN", "host=db user=app dbname=chatapp")
	os.Setenv("APP_ENV", "prod")
	os.Setenv("WS_PING_INTERVAL_SECONDS", "3")
	os.Setenv("RESEND_API_KEY", "re_test")
	os.Setenv("CONTACT_INBOX", "team@example.com")
	defer clearEnv()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Load() Port = %v, want 9090", cfg.Port)
	}
	if cfg.DatabaseDSN != "host=db user=app dbname=chatapp" {
		t.Errorf("Load() DatabaseDSN = %v", cfg.DatabaseDSN)
	}
	if cfg.Env != "prod" {
		t.Errorf("Load() Env = %v, want prod", cfg.Env)
	}
	if cfg.PingIntervalSeconds != 3 {
		t.Errorf("Load() PingIntervalSeconds = %v, want 3", cfg.PingIntervalSeconds)
	}
	if cfg.ResendAPIKey != "re_test" {
		t.Errorf("Load() ResendAPIKey = %v, want re_test", cfg.ResendAPIKey)
	}
	if cfg.ContactInbox != "team@example.com" {
		t.Errorf("Load() ContactInbox = %v, want team@example.com", cfg.ContactInbox)
	}
}

func TestLoad_InvalidPingIntervalRejectedByValidate(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"negative", "-5"},
		{"zero", "0"},
		{"not a number", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("WS_PING_INTERVAL_SECONDS", tt.value)
			defer clearEnv()

			// the bad value passes through Load so Validate can reject it
			cfg := Load()
			if cfg.PingIntervalSeconds > 0 {
				t.Errorf("Load() PingIntervalSeconds = %v, want non-positive pass-through", cfg.PingIntervalSeconds)
			}
			if err := Validate(cfg); err == nil {
				t.Error("Validate() should reject a non-positive ping interval")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Port:                "8080",
				DatabaseDSN:         "host=localhost dbname=chatapp",
				Env:                 "dev",
				PingIntervalSeconds: 10,
			},
			wantErr: false,
		},
		{
			name: "empty port",
			cfg: Config{
				Port:                "",
				DatabaseDSN:         "host=localhost dbname=chatapp",
				Env:                 "dev",
				PingIntervalSeconds: 10,
			},
			wantErr: true,
		},
		{
			name: "empty dsn",
			cfg: Config{
				Port:                "8080",
				DatabaseDSN:         "",
				Env:                 "dev",
				PingIntervalSeconds: 10,
			},
			wantErr: true,
		},
		{
			name: "zero ping interval",
			cfg: Config{
				Port:                "8080",
				DatabaseDSN:         "host=localhost dbname=chatapp",
				Env:                 "dev",
				PingIntervalSeconds: 0,
			},
			wantErr: true,
		},
		{
			name: "resend key without inbox",
			cfg: Config{
				Port:                "8080",
				DatabaseDSN:         "host=localhost dbname=chatapp",
				Env:                 "prod",
				PingIntervalSeconds: 10,
				ResendAPIKey:        "re_test",
			},
			wantErr: true,
		},
		{
			name: "resend key with inbox",
			cfg: Config{
				Port:                "8080",
				DatabaseDSN:         "host=localhost dbname=chatapp",
				Env:                 "prod",
				PingIntervalSeconds: 10,
				ResendAPIKey:        "re_test",
				ContactInbox:        "team@example.com",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
