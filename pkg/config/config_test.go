package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataset.SplitRatio != 0.2 {
		t.Errorf("SplitRatio = %v, want 0.2", cfg.Dataset.SplitRatio)
	}
	if !reflect.DeepEqual(cfg.Dataset.InputShape, []int{28, 28, 1}) {
		t.Errorf("InputShape = %v", cfg.Dataset.InputShape)
	}
	if cfg.Dataset.Normalization != "max" {
		t.Errorf("Normalization = %q", cfg.Dataset.Normalization)
	}
	if cfg.Dataset.MaxImagePixels != 1<<25 || cfg.Dataset.MaxExtractBytes != 4<<30 {
		t.Errorf("limits = %d pixels, %d bytes", cfg.Dataset.MaxImagePixels, cfg.Dataset.MaxExtractBytes)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := `
server:
  port: 7000
dataset:
  dataRoot: /srv/data
  splitRatio: 0.3
  inputShape: [32, 32, 3]
  normalization: fixed
  fixedScale: 255
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DI_DATASET_SPLIT_SEED", "42")
	t.Setenv("DI_SERVER_PORT", "7100")
	t.Setenv("DI_DATASET_MAX_IMAGE_PIXELS", "1000000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Port = %d, want env override 7100", cfg.Server.Port)
	}
	if cfg.Dataset.DataRoot != "/srv/data" || cfg.Dataset.SplitRatio != 0.3 {
		t.Errorf("dataset = %+v", cfg.Dataset)
	}
	if cfg.Dataset.Height() != 32 || cfg.Dataset.Width() != 32 || cfg.Dataset.Channels() != 3 {
		t.Errorf("shape = %v", cfg.Dataset.InputShape)
	}
	if cfg.Dataset.SplitSeed != 42 {
		t.Errorf("SplitSeed = %d", cfg.Dataset.SplitSeed)
	}
	if cfg.Dataset.MaxImagePixels != 1000000 {
		t.Errorf("MaxImagePixels = %d", cfg.Dataset.MaxImagePixels)
	}
	if cfg.Dataset.LabelSeparator != "_" {
		t.Errorf("LabelSeparator default lost: %q", cfg.Dataset.LabelSeparator)
	}
}

func TestDatasetValidate(t *testing.T) {
	base := defaultConfig().Dataset
	tests := []struct {
		name    string
		mutate  func(*DatasetConfig)
		wantErr string
	}{
		{"valid", func(*DatasetConfig) {}, ""},
		{"ratio zero", func(d *DatasetConfig) { d.SplitRatio = 0 }, "splitRatio"},
		{"ratio one", func(d *DatasetConfig) { d.SplitRatio = 1 }, "splitRatio"},
		{"short shape", func(d *DatasetConfig) { d.InputShape = []int{28, 28} }, "inputShape"},
		{"bad channels", func(d *DatasetConfig) { d.InputShape = []int{28, 28, 2} }, "channels"},
		{"bad policy", func(d *DatasetConfig) { d.Normalization = "zscore" }, "normalization"},
		{"fixed without scale", func(d *DatasetConfig) { d.Normalization = "fixed"; d.FixedScale = 0 }, "fixedScale"},
		{"no data root", func(d *DatasetConfig) { d.DataRoot = "" }, "dataRoot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			d.InputShape = append([]int(nil), base.InputShape...)
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	for _, in := range []string{"64,64,3", "64x64x3", " 64, 64, 3 "} {
		got, err := parseShape(in)
		if err != nil {
			t.Fatalf("parseShape(%q): %v", in, err)
		}
		if !reflect.DeepEqual(got, []int{64, 64, 3}) {
			t.Errorf("parseShape(%q) = %v", in, got)
		}
	}
	if _, err := parseShape("a,b"); err == nil {
		t.Error("expected error for non-numeric shape")
	}
}
