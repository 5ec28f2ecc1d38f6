package main

import (
	"testing"

	"github.com/googlesky/ipacctd/internal/model"
	"github.com/googlesky/ipacctd/internal/report"
)

func TestParseArgsValid(t *testing.T) {
	cfg, err := parseArgs([]string{"1", "text", "eth0", "in", "dst", "10.0.0.0/24", "192.168.0.0/16"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.iface != "eth0" {
		t.Errorf("iface = %q, want eth0", cfg.iface)
	}
	if cfg.direction != model.DirectionIn {
		t.Errorf("direction = %v, want DirectionIn", cfg.direction)
	}
	if cfg.axis != model.CountDestination {
		t.Errorf("axis = %v, want CountDestination", cfg.axis)
	}
	if cfg.format != report.FormatText {
		t.Errorf("format = %v, want FormatText", cfg.format)
	}
	if len(cfg.cidrs) != 2 {
		t.Errorf("cidrs = %v, want 2 entries", cfg.cidrs)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few args", []string{"1", "text", "eth0"}},
		{"bad version", []string{"2", "text", "eth0", "in", "dst", "10.0.0.0/24"}},
		{"bad format", []string{"1", "xml", "eth0", "in", "dst", "10.0.0.0/24"}},
		{"bad direction", []string{"1", "text", "eth0", "sideways", "dst", "10.0.0.0/24"}},
		{"bad axis", []string{"1", "text", "eth0", "in", "both", "10.0.0.0/24"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args); err == nil {
				t.Errorf("parseArgs(%v): want error, got nil", tt.args)
			}
		})
	}
}
