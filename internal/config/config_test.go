package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PrimaryBaseURL == "" {
		t.Fatal("PrimaryBaseURL empty")
	}
	if cfg.CDPURL() != "http://127.0.0.1:9222" {
		t.Fatalf("CDPURL() = %q", cfg.CDPURL())
	}
	if len(cfg.Origins()) != 2 {
		t.Fatalf("Origins() = %v; want primary plus fallback", cfg.Origins())
	}
}

func TestLoadEnvOverridesAndFloors(t *testing.T) {
	t.Setenv("SGP_BRIDGE_PRIMARY_URL", "https://sgp.test.local")
	t.Setenv("SGP_BRIDGE_FALLBACK_URL", "")
	t.Setenv("SGP_BRIDGE_PROBE_TIMEOUT_MS", "10")
	t.Setenv("SGP_BRIDGE_PORT_CANDIDATES", " 127.0.0.1:9001 ,, 127.0.0.1:9002 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PrimaryBaseURL != "https://sgp.test.local" {
		t.Fatalf("PrimaryBaseURL = %q", cfg.PrimaryBaseURL)
	}
	if cfg.ProbeTimeoutMS != 1000 {
		t.Fatalf("ProbeTimeoutMS = %d; want the 1000ms floor", cfg.ProbeTimeoutMS)
	}
	if len(cfg.PortCandidates) != 2 || cfg.PortCandidates[0] != "127.0.0.1:9001" {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
}
