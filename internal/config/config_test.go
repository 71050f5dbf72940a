package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr)
	}
	if cfg.JWTIssuer != "storefront-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "storefront-auth")
	}
	if cfg.JWTAudience != "storefront-web" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "storefront-web")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.BotMode != BotModeWebhook {
		t.Errorf("BotMode = %q, want webhook", cfg.BotMode)
	}
	if cfg.PurgeSchedule != "@every 1h" {
		t.Errorf("PurgeSchedule = %q", cfg.PurgeSchedule)
	}
	if cfg.WorkerMetricsAddr != ":9091" {
		t.Errorf("WorkerMetricsAddr = %q, want :9091", cfg.WorkerMetricsAddr)
	}
	if cfg.PollIntervalSeconds != 3 {
		t.Errorf("PollIntervalSeconds = %d, want 3", cfg.PollIntervalSeconds)
	}
	if cfg.RegisterRatePerMin != 20 {
		t.Errorf("RegisterRatePerMin = %d, want 20", cfg.RegisterRatePerMin)
	}
	if cfg.PendingTTL() != 24*time.Hour {
		t.Errorf("PendingTTL = %v, want 24h", cfg.PendingTTL())
	}
	if cfg.ConversationTTL() != time.Hour {
		t.Errorf("ConversationTTL = %v, want 1h", cfg.ConversationTTL())
	}
	if cfg.BotEnabled() {
		t.Error("BotEnabled should be false without BOT_TOKEN")
	}
	if cfg.TrustedProxies() != nil {
		t.Errorf("TrustedProxies = %v, want none by default", cfg.TrustedProxies())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("PENDING_TTL", "2h")
	os.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.PendingTTL() != 2*time.Hour {
		t.Errorf("PendingTTL = %v, want 2h", cfg.PendingTTL())
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_BotSettings(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		err  bool
	}{
		{"polling mode", map[string]string{"BOT_MODE": "Polling"}, false},
		{"unknown mode", map[string]string{"BOT_MODE": "carrier-pigeon"}, true},
		{"token without username", map[string]string{"BOT_TOKEN": "123:abc"}, false},
		{"token with username", map[string]string{"BOT_TOKEN": "123:abc", "BOT_USERNAME": "shop_bot"}, false},
		{"production webhook without secret", map[string]string{
			"BOT_TOKEN": "123:abc", "BOT_USERNAME": "shop_bot", "APP_ENV": "production",
		}, true},
		{"production polling without secret", map[string]string{
			"BOT_TOKEN": "123:abc", "BOT_USERNAME": "shop_bot", "APP_ENV": "production", "BOT_MODE": "polling",
		}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				if cfg != nil {
					t.Error("Load should return nil config on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestDurations_FallBackOnInvalid(t *testing.T) {
	cases := []string{"invalid", "0", "-5m", ""}
	for _, raw := range cases {
		cfg := &Config{JWTAccessTTL: raw, JWTRefreshTTL: raw, PendingTTLRaw: raw, ConversationTTLRaw: raw}
		if got := cfg.AccessTTL(); got != 15*time.Minute {
			t.Errorf("AccessTTL(%q) = %v, want 15m", raw, got)
		}
		if got := cfg.RefreshTTL(); got != 168*time.Hour {
			t.Errorf("RefreshTTL(%q) = %v, want 168h", raw, got)
		}
		if got := cfg.PendingTTL(); got != 24*time.Hour {
			t.Errorf("PendingTTL(%q) = %v, want 24h", raw, got)
		}
		if got := cfg.ConversationTTL(); got != time.Hour {
			t.Errorf("ConversationTTL(%q) = %v, want 1h", raw, got)
		}
	}
}

func TestAccessTTL_ValidDuration(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "30m"}
	if ttl := cfg.AccessTTL(); ttl != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want %v", ttl, 30*time.Minute)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
	cfg := &Config{KafkaBrokers: " a:9092, ,b:9092 "}
	want := []string{"a:9092", "b:9092"}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokersList = %v, want %v", got, want)
	}
}

func TestTrustedProxies(t *testing.T) {
	os.Clearenv()
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"10.0.0.0/8", "172.16.0.1"}
	if got := cfg.TrustedProxies(); !reflect.DeepEqual(got, want) {
		t.Errorf("TrustedProxies = %v, want %v", got, want)
	}
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{}
	if cfg.CORSOrigins() != nil {
		t.Error("empty CORS_ALLOWED_ORIGINS should return nil")
	}
	cfg.CORSAllowedOrigins = "https://shop.example,https://m.shop.example"
	if got := cfg.CORSOrigins(); len(got) != 2 || got[1] != "https://m.shop.example" {
		t.Errorf("CORSOrigins = %v", got)
	}
}
