package hls

import "testing"

func TestRescaleRoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		name  string
		in    MediaTime
		scale int32
		want  int64
	}{
		{"exact", MediaTime{Value: 540, Scale: 90}, 15, 90},
		{"one tick short rounds up", MediaTime{Value: 18*90 - 1, Scale: 90}, 15, 270},
		{"one tick over rounds down", MediaTime{Value: 18*90 + 1, Scale: 90}, 15, 270},
		{"midpoint rounds away", MediaTime{Value: 3, Scale: 90}, 15, 1},
		{"negative midpoint rounds away", MediaTime{Value: -3, Scale: 90}, 15, -1},
		{"audio scale", MediaTime{Value: 48000 * 6, Scale: 48000}, 15, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Rescale(tt.scale)
			if got.Value != tt.want {
				t.Errorf("Rescale(%d): got %d, want %d", tt.scale, got.Value, tt.want)
			}
			if got.Scale != tt.scale {
				t.Errorf("Rescale(%d): got scale %d", tt.scale, got.Scale)
			}
		})
	}
}

func TestTimeRangeOverlaps(t *testing.T) {
	a := TimeRange{Start: MediaTime{Value: 180, Scale: 15}, End: MediaTime{Value: 270, Scale: 15}}

	tests := []struct {
		name string
		b    TimeRange
		want bool
	}{
		{"identical", a, true},
		{"partial", TimeRange{Start: MediaTime{Value: 240, Scale: 15}, End: MediaTime{Value: 330, Scale: 15}}, true},
		{"contained", TimeRange{Start: MediaTime{Value: 200, Scale: 15}, End: MediaTime{Value: 210, Scale: 15}}, true},
		{"adjacent after", TimeRange{Start: MediaTime{Value: 270, Scale: 15}, End: MediaTime{Value: 360, Scale: 15}}, false},
		{"adjacent before", TimeRange{Start: MediaTime{Value: 90, Scale: 15}, End: MediaTime{Value: 180, Scale: 15}}, false},
		{"disjoint", TimeRange{Start: MediaTime{Value: 400, Scale: 15}, End: MediaTime{Value: 500, Scale: 15}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps: got %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps (reversed): got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRangeSeconds(t *testing.T) {
	r := TimeRange{
		Start: MediaTime{Value: 90, Scale: 15},
		End:   MediaTime{Value: 180, Scale: 15},
	}
	if got := r.Seconds(); got != 6 {
		t.Errorf("Seconds: got %v, want 6", got)
	}
	if !(TimeRange{}).IsZero() {
		t.Error("zero range should report IsZero")
	}
	if r.IsZero() {
		t.Error("non-zero range should not report IsZero")
	}
}
