package agents

import "testing"

func TestExtractSection(t *testing.T) {
	text := "Preamble here.\n\nExplanation: Your pace may have slowed\nbecause of poor sleep.\n\nFactors:\n- sleep"
	got := extractSection(text, "Explanation:")
	want := "Your pace may have slowed\nbecause of poor sleep."
	if got != want {
		t.Errorf("extractSection = %q, want %q", got, want)
	}
	if got := extractSection(text, "Missing:"); got != "" {
		t.Errorf("absent header should return empty, got %q", got)
	}
}

func TestExtractBullets(t *testing.T) {
	section := "- first\n• second\n* third\nnot a bullet\n- fourth"
	got := extractBullets(section, 3)
	if len(got) != 3 {
		t.Fatalf("got %d bullets, want 3 (capped)", len(got))
	}
	if got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Errorf("bullets = %v", got)
	}
}

func TestFirstParagraph(t *testing.T) {
	text := "short\n\nThis paragraph is comfortably longer than the fifty character minimum imposed."
	got := firstParagraph(text, 50)
	if got == "" || got == "short" {
		t.Errorf("firstParagraph skipped wrong block: %q", got)
	}
	if got := firstParagraph("tiny", 50); got != "" {
		t.Errorf("no qualifying paragraph should yield empty, got %q", got)
	}
}

func TestExtractConfidence(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"Confidence Level: 0.75", 0.75},
		{"Confidence Level: 75", 0.75},
		{"Confidence Level: 0.75 based on context", 0.75},
		{"Confidence Level: high (0.9)", 0.9},
	}
	for _, c := range cases {
		got, ok := extractConfidence(c.text, "Confidence Level:")
		if !ok {
			t.Errorf("extractConfidence(%q) found nothing", c.text)
			continue
		}
		if got != c.want {
			t.Errorf("extractConfidence(%q) = %.2f, want %.2f", c.text, got, c.want)
		}
	}
	if _, ok := extractConfidence("no header here", "Confidence Level:"); ok {
		t.Error("missing header should report not found")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 4); got != "ab" {
		t.Errorf("under-limit text should pass through, got %q", got)
	}
}
