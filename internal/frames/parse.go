// Package frames parses nine-frame photoshoot templates and turns a single
// frame into a generation prompt.
package frames

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"feedplanner/internal/domain"
)

// Frame is one numbered scene of a template.
type Frame struct {
	Position    int
	Description string
}

// Parsed holds the sections recovered from a template. Missing sections are
// empty; callers check completeness with ValidateTemplate.
type Parsed struct {
	Vibe       string
	Setting    string
	ColorGrade string
	Frames     []Frame
}

// Frame returns the frame at position.
func (p Parsed) Frame(position int) (Frame, bool) {
	for _, f := range p.Frames {
		if f.Position == position {
			return f, true
		}
	}
	return Frame{}, false
}

// Positions lists the parsed frame positions in order.
func (p Parsed) Positions() []int {
	out := make([]int, 0, len(p.Frames))
	for _, f := range p.Frames {
		out = append(out, f.Position)
	}
	return out
}

const (
	labelVibe       = "vibe"
	labelSetting    = "setting"
	labelFrames     = "frames"
	labelColorGrade = "color grade"
)

var (
	labelPattern = regexp.MustCompile(`(?i)\b(vibe|setting|9 frames|colou?r grade)\s*:`)
	framePattern = regexp.MustCompile(`^\s*(\d+)\.\s*(.+?)\s*$`)
	wsPattern    = regexp.MustCompile(`\s+`)
)

// ParseTemplate extracts the vibe, setting, color grade and numbered frames.
// Frame lines outside 1..9 or without a number are dropped.
func ParseTemplate(text string) Parsed {
	sections := splitSections(text)
	parsed := Parsed{
		Vibe:       collapse(sections[labelVibe]),
		Setting:    collapse(sections[labelSetting]),
		ColorGrade: collapse(sections[labelColorGrade]),
	}
	seen := make(map[int]struct{})
	for _, line := range strings.Split(sections[labelFrames], "\n") {
		m := framePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > domain.PostsPerFeed {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		parsed.Frames = append(parsed.Frames, Frame{Position: n, Description: collapse(m[2])})
	}
	sort.Slice(parsed.Frames, func(i, j int) bool { return parsed.Frames[i].Position < parsed.Frames[j].Position })
	return parsed
}

// splitSections maps each label to the text up to the next label. The first
// occurrence of a label wins.
func splitSections(text string) map[string]string {
	out := make(map[string]string, 4)
	locs := labelPattern.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		label := canonicalLabel(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, ok := out[label]; ok {
			continue
		}
		out[label] = text[loc[1]:end]
	}
	return out
}

func canonicalLabel(raw string) string {
	l := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(l, "vibe"):
		return labelVibe
	case strings.HasPrefix(l, "setting"):
		return labelSetting
	case strings.HasSuffix(l, "frames"):
		return labelFrames
	default:
		return labelColorGrade
	}
}

func collapse(s string) string {
	return strings.TrimSpace(wsPattern.ReplaceAllString(s, " "))
}

// Report summarises template completeness.
type Report struct {
	HasFrames     bool
	HasVibe       bool
	HasSetting    bool
	HasColorGrade bool
	FrameCount    int
	IsValid       bool
}

// ValidateTemplate reports which sections are present and whether the
// template has exactly nine frames.
func ValidateTemplate(text string) Report {
	p := ParseTemplate(text)
	r := Report{
		HasFrames:     len(p.Frames) > 0,
		HasVibe:       p.Vibe != "",
		HasSetting:    p.Setting != "",
		HasColorGrade: p.ColorGrade != "",
		FrameCount:    len(p.Frames),
	}
	r.IsValid = r.HasVibe && r.HasSetting && r.HasColorGrade && r.FrameCount == domain.PostsPerFeed
	return r
}
