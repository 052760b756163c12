package destination

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solsticetv/hls-packager/internal/hls"
)

func mediaFragment(start, end int64, payload string) hls.Fragment {
	return hls.Fragment{
		Kind:  hls.FragmentMedia,
		Bytes: []byte(payload),
		Range: hls.TimeRange{
			Start: hls.MediaTime{Value: start, Scale: 1},
			End:   hls.MediaTime{Value: end, Scale: 1},
		},
	}
}

func TestLocalWritesInitializationSegment(t *testing.T) {
	base := t.TempDir()
	local, err := NewLocal(base, hls.VideoRendition(hls.QualityHigh), 6)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	init := hls.Fragment{Kind: hls.FragmentInitialization, Bytes: []byte("init-bytes")}
	if err := local.Write(context.Background(), init, 0); err != nil {
		t.Fatalf("init write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, "high", "0.mp4"))
	if err != nil {
		t.Fatalf("read init segment: %v", err)
	}
	if string(data) != "init-bytes" {
		t.Errorf("init content: got %q", data)
	}
}

func TestLocalWritesSegmentsAndPlaylist(t *testing.T) {
	base := t.TempDir()
	local, err := NewLocal(base, hls.AudioRendition, 6)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		f := mediaFragment(int64((i-1)*6), int64(i*6), "segment")
		if err := local.Write(ctx, f, i); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	dir := filepath.Join(base, "audio")
	for i := 1; i <= 3; i++ {
		name := filepath.Join(dir, hls.SegmentRecord{SequenceID: i}.Name())
		if _, err := os.Stat(name); err != nil {
			t.Errorf("segment %d missing: %v", i, err)
		}
	}

	playlist, err := os.ReadFile(filepath.Join(dir, "live.m3u8"))
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	text := string(playlist)
	if !strings.Contains(text, "#EXT-X-MEDIA-SEQUENCE:1\n") {
		t.Errorf("playlist sequence wrong:\n%s", text)
	}
	for i := 1; i <= 3; i++ {
		if !strings.Contains(text, hls.SegmentRecord{SequenceID: i}.Name()+"\n") {
			t.Errorf("playlist missing segment %d:\n%s", i, text)
		}
	}

	// No temp files left behind by the atomic replaces.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestLocalWindowEviction(t *testing.T) {
	base := t.TempDir()
	local, err := NewLocal(base, hls.VideoRendition(hls.QualityLow), 6)
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	ctx := context.Background()
	total := localWindow + 5
	for i := 1; i <= total; i++ {
		f := mediaFragment(int64((i-1)*6), int64(i*6), "x")
		if err := local.Write(ctx, f, i); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	records := local.Records()
	if len(records) != localWindow {
		t.Fatalf("got %d records, want %d", len(records), localWindow)
	}
	if records[0].SequenceID != 6 {
		t.Errorf("oldest record: got id %d, want 6", records[0].SequenceID)
	}
	if records[len(records)-1].SequenceID != total {
		t.Errorf("newest record: got id %d, want %d", records[len(records)-1].SequenceID, total)
	}

	playlist, err := os.ReadFile(filepath.Join(base, "low", "live.m3u8"))
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if !strings.Contains(string(playlist), "#EXT-X-MEDIA-SEQUENCE:6\n") {
		t.Errorf("playlist does not start at evicted boundary:\n%s", playlist)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.m3u8")

	if err := writeFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := writeFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("got %q, want %q", data, "second")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
