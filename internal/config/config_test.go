package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY", "cardNetwork")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	t.Setenv("STRIPE_WEBHOOK_TOLERANCE", "90s")
	t.Setenv("PAYMENT_TIMEOUT", "not-a-duration")
	t.Setenv("LEDGER_BACKEND", "Gorm")
	t.Setenv("BOT_REPORT_CHAT_ID", "-100123")
	t.Setenv("DB_NAME", "paygate")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASS", "")
	t.Setenv("PAYPAL_MODE", "")
	t.Setenv("RECONCILE_SCHEDULE", "")
	t.Setenv("RECONCILE_EXPIRE_AFTER", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "")
	t.Setenv("DB_MAX_IDLE_CONNS", "")
	t.Setenv("DB_CONN_MAX_LIFETIME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Payment.Provider != "cardNetwork" || cfg.Payment.Razorpay.KeyID != "rzp_key" || cfg.Payment.Razorpay.KeySecret != "rzp_secret" {
		t.Fatalf("unexpected payment settings %+v", cfg.Payment)
	}
	if cfg.Payment.Stripe.WebhookTolerance != 90*time.Second {
		t.Fatalf("tolerance = %v", cfg.Payment.Stripe.WebhookTolerance)
	}
	if cfg.Payment.Timeout != 30*time.Second {
		t.Fatalf("invalid duration should fall back, got %v", cfg.Payment.Timeout)
	}
	if cfg.Payment.PayPal.Mode != "sandbox" {
		t.Fatalf("paypal mode = %q", cfg.Payment.PayPal.Mode)
	}
	if cfg.Ledger.Backend != LedgerMySQL {
		t.Fatalf("ledger backend = %q", cfg.Ledger.Backend)
	}
	if cfg.Bot.ReportChatID != -100123 {
		t.Fatalf("report chat = %d", cfg.Bot.ReportChatID)
	}
	if cfg.Cron.ReconcileSchedule != "0 */5 * * * *" || cfg.Cron.ExpireAfter != 24*time.Hour {
		t.Fatalf("unexpected cron config %+v", cfg.Cron)
	}
	if cfg.Database.MaxOpenConns != 100 || cfg.Database.MaxIdleConns != 10 || cfg.Database.ConnMaxLifetime != time.Hour {
		t.Fatalf("unexpected pool settings %+v", cfg.Database)
	}
	if got := cfg.Database.DSN(); got != ":@tcp(localhost:3306)/paygate?charset=utf8mb4&parseTime=True&loc=Local" {
		t.Fatalf("DSN = %q", got)
	}
}

func TestLoad_UnknownLedgerBackend(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "etcd")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
