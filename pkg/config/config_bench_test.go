package config

import "testing"

func BenchmarkConfig_Validate(b *testing.B) {
	cfg := validConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}

func BenchmarkConfig_LoadFromEnv(b *testing.B) {
	b.Setenv("SYNC_INTERVAL", "15s")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromEnv()
	}
}
