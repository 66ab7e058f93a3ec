package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"autosub/internal/fileutil"
	"autosub/internal/segment"
	"autosub/internal/textutil"
)

const cueSeparator = " --> "

// FormatTimestamp renders seconds as HH:MM:SS,mmm. The value is rounded to
// the nearest millisecond before splitting, so 0.9995 becomes 00:00:01,000
// rather than 00:00:00,1000. Negative and NaN inputs clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	secs := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp parses HH:MM:SS,mmm (a period is accepted in place of the
// comma) into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Encode writes segs to w as SRT cues numbered from 1. Cue text is trimmed
// and blank lines inside it are dropped so each cue stays one block.
func Encode(w io.Writer, segs []segment.Segment) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segs {
		if _, err := fmt.Fprintf(bw, "%d\n%s%s%s\n%s\n\n",
			i+1, FormatTimestamp(seg.Start), cueSeparator, FormatTimestamp(seg.End), textutil.CueText(seg.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Write renders segs to outputPath as UTF-8 SRT, creating parent
// directories as needed. The file is replaced atomically. An empty segment
// list produces an empty file.
func Write(segs []segment.Segment, outputPath string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, segs); err != nil {
		return fmt.Errorf("encode srt: %w", err)
	}
	if err := fileutil.WriteFileAtomic(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write srt %s: %w", outputPath, err)
	}
	return nil
}

// Parse reads SRT cues from r. Cue numbers are not required to be
// sequential; multi-line cue text is joined with newlines. A UTF-8 BOM and
// CRLF line endings are tolerated.
func Parse(r io.Reader) ([]segment.Segment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimPrefix(string(data), "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	blocks := strings.Split(content, "\n\n")
	segs := make([]segment.Segment, 0, len(blocks))
	for idx, block := range blocks {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		timing := 0
		if !strings.Contains(lines[0], "-->") {
			if len(lines) < 2 {
				return nil, fmt.Errorf("cue %d: missing timing line", idx+1)
			}
			timing = 1
		}
		start, end, err := parseTimingLine(lines[timing])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", idx+1, err)
		}
		text := strings.Join(lines[timing+1:], "\n")
		segs = append(segs, segment.Segment{Start: start, End: end, Text: textutil.CueText(text)})
	}
	return segs, nil
}

// ParseFile reads SRT cues from path.
func ParseFile(path string) ([]segment.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Position hints such as "X1:100" may trail the end timestamp.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ValidateContent checks parsed cues for ordering and timing issues. It
// returns a list of issue codes; an empty slice means validation passed.
func ValidateContent(segs []segment.Segment) []string {
	var issues []string
	if len(segs) == 0 {
		return []string{"empty_subtitle_file"}
	}
	prevStart := -1.0
	for i, seg := range segs {
		if err := seg.Validate(); err != nil {
			issues = append(issues, fmt.Sprintf("cue_%d_invalid_timing", i+1))
		}
		if seg.Start < prevStart {
			issues = append(issues, fmt.Sprintf("cue_%d_out_of_order", i+1))
		}
		if strings.TrimSpace(seg.Text) == "" {
			issues = append(issues, fmt.Sprintf("cue_%d_empty_text", i+1))
		}
		prevStart = seg.Start
	}
	return issues
}
