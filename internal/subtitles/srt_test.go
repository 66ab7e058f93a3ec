package subtitles

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autosub/internal/segment"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.001, "00:01:01,001"},
		{3661.0, "01:01:01,000"},
		{0.9995, "00:00:01,000"},
		{59.9999, "00:01:00,000"},
		{-3, "00:00:00,000"},
		{360000.25, "100:00:00,250"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("01:01:01,250")
	if err != nil {
		t.Fatalf("ParseTimestamp returned error: %v", err)
	}
	if got != 3661.25 {
		t.Fatalf("ParseTimestamp = %v, want 3661.25", got)
	}
	if got, err := ParseTimestamp("00:00:02.500"); err != nil || got != 2.5 {
		t.Fatalf("expected period separator to parse, got %v %v", got, err)
	}
	for _, bad := range []string{"", "00:00:01", "00:61:00,000", "aa:bb:cc,ddd", "00:00:00,1000"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestEncodeFormat(t *testing.T) {
	var buf bytes.Buffer
	segs := []segment.Segment{
		{Start: 0, End: 1, Text: "안녕 세상아"},
		{Start: 1.5, End: 3.25, Text: "second"},
	}
	if err := Encode(&buf, segs); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,000\n안녕 세상아\n\n2\n00:00:01,500 --> 00:00:03,250\nsecond\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected SRT:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	segs := []segment.Segment{
		{Start: 0.001, End: 1.999, Text: "first line"},
		{Start: 2, End: 4.5, Text: "두 번째"},
		{Start: 3600.123, End: 3601, Text: "multi\nline"},
	}
	path := filepath.Join(t.TempDir(), "nested", "out.srt")
	if err := Write(segs, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(parsed) != len(segs) {
		t.Fatalf("expected %d cues, got %d", len(segs), len(parsed))
	}
	for i := range segs {
		if FormatTimestamp(parsed[i].Start) != FormatTimestamp(segs[i].Start) ||
			FormatTimestamp(parsed[i].End) != FormatTimestamp(segs[i].End) {
			t.Fatalf("cue %d timing mismatch: %+v vs %+v", i, parsed[i], segs[i])
		}
		if parsed[i].Text != segs[i].Text {
			t.Fatalf("cue %d text mismatch: %q vs %q", i, parsed[i].Text, segs[i].Text)
		}
	}
}

func TestWriteTrimsCueText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trim.srt")
	if err := Write([]segment.Segment{{Start: 0, End: 1, Text: "  hello  "}}, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "1\n00:00:00,000 --> 00:00:01,000\nhello\n\n"; string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
}

func TestWriteParseRoundTripMultiLineText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.srt")
	segs := []segment.Segment{
		{Start: 0, End: 1, Text: "a\n\nb"},
		{Start: 1, End: 2, Text: "c"},
		{Start: 2, End: 3, Text: "line one\n  line two  "},
	}
	if err := Write(segs, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	want := []string{"a\nb", "c", "line one\nline two"}
	if len(parsed) != len(want) {
		t.Fatalf("expected %d cues, got %d", len(want), len(parsed))
	}
	for i, text := range want {
		if parsed[i].Text != text || parsed[i].Start != segs[i].Start || parsed[i].End != segs[i].End {
			t.Fatalf("cue %d = %+v, want text %q", i+1, parsed[i], text)
		}
	}
	if problems := ValidateContent(parsed); len(problems) != 0 {
		t.Fatalf("unexpected problems %v", problems)
	}
}

func TestWriteEmptyProducesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")
	if err := Write(nil, path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got %d bytes", info.Size())
	}
}

func TestParseToleratesBOMAndCRLF(t *testing.T) {
	input := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000 X1:10\r\nhello\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nworld\r\n"
	segs, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(segs) != 2 || segs[0].Text != "hello" || segs[1].Start != 3 {
		t.Fatalf("unexpected cues: %+v", segs)
	}
}

func TestParseRejectsBadTiming(t *testing.T) {
	if _, err := Parse(strings.NewReader("1\nnot a timing line\ntext\n")); err == nil {
		t.Fatal("expected error for malformed cue")
	}
}

func TestValidateContent(t *testing.T) {
	if issues := ValidateContent(nil); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues for empty input: %v", issues)
	}
	good := []segment.Segment{{Start: 0, End: 1, Text: "a"}, {Start: 1, End: 2, Text: "b"}}
	if issues := ValidateContent(good); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	bad := []segment.Segment{{Start: 5, End: 4, Text: "a"}, {Start: 1, End: 2, Text: " "}}
	issues := ValidateContent(bad)
	want := []string{"cue_1_invalid_timing", "cue_2_out_of_order", "cue_2_empty_text"}
	if strings.Join(issues, ",") != strings.Join(want, ",") {
		t.Fatalf("issues = %v, want %v", issues, want)
	}
}
