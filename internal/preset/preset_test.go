package preset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePresets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write presets: %v", err)
	}
	return path
}

func TestLoadPresets(t *testing.T) {
	path := writePresets(t, `
presets:
  - id: conservative
    name: Conservative
    exposure_mode: margin
    risk_mode: percent
    risk_value: 1
    margin_capital: 5000
  - id: fixed-300
    name: Fixed $300
    exposure_mode: margin
    risk_mode: amount
    risk_value: 300
`)

	presets, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(presets))
	}
	if presets[0].ID != "conservative" || presets[0].RiskValue != 1 {
		t.Errorf("unexpected first preset: %+v", presets[0])
	}
	if presets[1].RiskMode != "amount" {
		t.Errorf("risk_mode=%s, expected amount", presets[1].RiskMode)
	}
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "percent with position mode",
			yaml: `
presets:
  - id: bad
    name: Bad
    exposure_mode: position
    risk_mode: percent
    risk_value: 2
`,
			wantErr: "percent risk requires margin mode",
		},
		{
			name: "duplicate ids",
			yaml: `
presets:
  - id: twin
    name: One
    exposure_mode: margin
    risk_mode: amount
    risk_value: 100
  - id: twin
    name: Two
    exposure_mode: margin
    risk_mode: amount
    risk_value: 200
`,
			wantErr: "duplicate preset id",
		},
		{
			name: "non-positive risk",
			yaml: `
presets:
  - id: zero
    name: Zero
    exposure_mode: margin
    risk_mode: amount
    risk_value: 0
`,
			wantErr: "risk_value must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writePresets(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v, expected to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
