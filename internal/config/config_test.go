package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != "127.0.0.1:50007" {
		t.Errorf("Addr = %q, want \"127.0.0.1:50007\"", cfg.Addr)
	}
	if cfg.MaxLen != 100 {
		t.Errorf("MaxLen = %d, want 100", cfg.MaxLen)
	}
	if cfg.BufferSize != 100 {
		t.Errorf("BufferSize = %d, want 100", cfg.BufferSize)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %f, want 0.6", cfg.ConfidenceThreshold)
	}
	if cfg.CooldownFrames != 30 {
		t.Errorf("CooldownFrames = %d, want 30", cfg.CooldownFrames)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MUDRA_ADDR", "0.0.0.0:9000")
	t.Setenv("MUDRA_MAX_LEN", "50")
	t.Setenv("MUDRA_CONFIDENCE", "0.75")
	t.Setenv("MUDRA_COOLDOWN_FRAMES", "not-a-number")

	cfg := Load()

	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q, want \"0.0.0.0:9000\"", cfg.Addr)
	}
	if cfg.MaxLen != 50 {
		t.Errorf("MaxLen = %d, want 50", cfg.MaxLen)
	}
	if cfg.ConfidenceThreshold != 0.75 {
		t.Errorf("ConfidenceThreshold = %f, want 0.75", cfg.ConfidenceThreshold)
	}
	if cfg.CooldownFrames != 30 {
		t.Errorf("unparseable env should keep the default, got %d", cfg.CooldownFrames)
	}
}
