package gcp

import "testing"

func TestResolveModeDefaultsToGCS(t *testing.T) {
	cfg, err := ObjectStorageConfig{Bucket: "reports"}.ResolveMode("")
	if err != nil || cfg.Mode != ObjectStorageModeGCS {
		t.Fatalf("mode=%s err=%v", cfg.Mode, err)
	}
}

func TestResolveModeFallsBackToEmulator(t *testing.T) {
	cfg, err := ObjectStorageConfig{Bucket: "reports", EmulatorHost: "http://fake-gcs:4443"}.ResolveMode("")
	if err != nil || !cfg.IsEmulatorMode() {
		t.Fatalf("mode=%s err=%v", cfg.Mode, err)
	}
}

func TestResolveModeRejectsBadInput(t *testing.T) {
	if _, err := (ObjectStorageConfig{Bucket: "reports"}).ResolveMode("s3"); err == nil {
		t.Fatalf("expected invalid mode error")
	}
	if _, err := (ObjectStorageConfig{Bucket: "reports"}).ResolveMode("gcs_emulator"); err == nil {
		t.Fatalf("expected missing emulator host error")
	}
	if _, err := (ObjectStorageConfig{Bucket: "reports", EmulatorHost: "fake-gcs"}).ResolveMode("gcs_emulator"); err == nil {
		t.Fatalf("expected invalid emulator host error")
	}
	if _, err := (ObjectStorageConfig{}).ResolveMode("gcs"); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestObjectNamePrefix(t *testing.T) {
	b := &ReportBucket{bucket: "reports", prefix: "exports"}
	if got := b.objectName("/municipality/a.csv"); got != "exports/municipality/a.csv" {
		t.Fatalf("objectName: %s", got)
	}
}
