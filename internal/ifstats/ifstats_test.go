package ifstats

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/googlesky/ipacctd/internal/model"
)

func writeFakeSysfs(t *testing.T, basePath, iface, prefix string, values map[string]int64) {
	t.Helper()
	statDir := filepath.Join(basePath, iface, "statistics")
	if err := os.MkdirAll(statDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for name, v := range values {
		path := filepath.Join(statDir, prefix+"_"+name)
		if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", v)), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", path, err)
		}
	}
}

func TestReaderReadOrderAndOverhead(t *testing.T) {
	base := t.TempDir()
	writeFakeSysfs(t, base, "eth0", "rx", map[string]int64{
		"packets":     10,
		"bytes":       1000,
		"dropped":     1,
		"errors":      2,
		"fifo_errors": 3,
	})

	r := &Reader{iface: "eth0", prefix: "rx", basePath: base}
	var stats model.IfaceStats
	if err := r.Read(&stats); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if stats.Total.Packets.End != 10 {
		t.Errorf("packets = %d, want 10", stats.Total.Packets.End)
	}
	wantBytes := int64(1000) + 10*model.FrameAdditionalBytes
	if stats.Total.Bytes.End != wantBytes {
		t.Errorf("bytes = %d, want %d (overhead folded in)", stats.Total.Bytes.End, wantBytes)
	}
	if stats.Dropped.End != 1 {
		t.Errorf("dropped = %d, want 1", stats.Dropped.End)
	}
	if stats.Errors.End != 2 {
		t.Errorf("errors = %d, want 2", stats.Errors.End)
	}
	if stats.FifoErrors.End != 3 {
		t.Errorf("fifo_errors = %d, want 3", stats.FifoErrors.End)
	}
}

func TestReaderMissingFile(t *testing.T) {
	base := t.TempDir()
	r := &Reader{iface: "eth0", prefix: "rx", basePath: base}
	var stats model.IfaceStats
	if err := r.Read(&stats); err == nil {
		t.Fatal("Read: want error for missing sysfs files, got nil")
	}
}

func TestNewReaderDirection(t *testing.T) {
	in := NewReader("eth0", model.DirectionIn)
	if in.prefix != "rx" {
		t.Errorf("DirectionIn prefix = %q, want rx", in.prefix)
	}
	out := NewReader("eth0", model.DirectionOut)
	if out.prefix != "tx" {
		t.Errorf("DirectionOut prefix = %q, want tx", out.prefix)
	}
}
