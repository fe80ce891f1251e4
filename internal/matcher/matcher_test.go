package matcher

import (
	"testing"

	"github.com/haltarr/haltarr/internal/arr"
)

func item(monitored, hasFile bool, quality string) arr.Item {
	return arr.Item{
		Service:     arr.ServiceRadarr,
		ID:          1,
		Title:       "Example Movie",
		Monitored:   monitored,
		HasFile:     hasFile,
		QualityName: quality,
	}
}

func TestDecide_EmptyStopTextNeverActionable(t *testing.T) {
	// Even a fully qualifying item must be rejected when no stop quality
	// is configured.
	candidates := []arr.Item{
		item(true, true, "Remux-2160p"),
		item(true, true, ""),
		item(false, false, "WEBDL-1080p"),
	}

	for _, stop := range []string{"", "   ", "\t"} {
		for _, it := range candidates {
			d := Decide(it, stop)
			if d.Actionable {
				t.Errorf("Decide(%+v, %q) should not be actionable", it, stop)
			}
			if d.Reason != ReasonNoStopQuality {
				t.Errorf("Decide(%+v, %q) reason = %q, want %q", it, stop, d.Reason, ReasonNoStopQuality)
			}
		}
	}
}

func TestDecide_UnmonitoredNeverActionable(t *testing.T) {
	d := Decide(item(false, true, "Remux-2160p"), "Remux-2160p")
	if d.Actionable {
		t.Fatal("unmonitored item should not be actionable")
	}
	if d.Reason != ReasonNotMonitored {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonNotMonitored)
	}
}

func TestDecide_Reasons(t *testing.T) {
	tests := []struct {
		name   string
		item   arr.Item
		stop   string
		want   Reason
		action bool
	}{
		{"no file", item(true, false, ""), "Remux-2160p", ReasonNoFile, false},
		{"file without quality label", item(true, true, ""), "Remux-2160p", ReasonNoQualityName, false},
		{"no substring match", item(true, true, "WEBDL-1080p"), "Remux-2160p", ReasonNoMatch, false},
		{"exact match", item(true, true, "Remux-2160p"), "Remux-2160p", ReasonActionable, true},
		{"substring match", item(true, true, "Remux-2160p HDR"), "Remux-2160p", ReasonActionable, true},
		{"case-insensitive match", item(true, true, "REMUX-2160P"), "remux-2160p", ReasonActionable, true},
		{"surrounding whitespace", item(true, true, "  Remux-2160p  "), " Remux-2160p ", ReasonActionable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.item, tt.stop)
			if d.Actionable != tt.action {
				t.Errorf("actionable = %v, want %v", d.Actionable, tt.action)
			}
			if d.Reason != tt.want {
				t.Errorf("reason = %q, want %q", d.Reason, tt.want)
			}
		})
	}
}

func TestDecide_EpisodeGranularity(t *testing.T) {
	ep := arr.Item{
		Service:     arr.ServiceSonarr,
		ID:          42,
		SeriesID:    7,
		Title:       "Example Show S01E03",
		Monitored:   true,
		HasFile:     true,
		QualityName: "Bluray-1080p",
	}

	d := Decide(ep, "bluray")
	if !d.Actionable {
		t.Fatalf("episode should be actionable, got reason %q", d.Reason)
	}
}
