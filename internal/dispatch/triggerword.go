package dispatch

import (
	"regexp"
	"strings"
)

// Identity is what a classic prompt must open with for the user's trained
// model to apply their likeness.
type Identity struct {
	TriggerWord string
	Gender      string
	Ethnicity   string
}

var (
	usernamePattern   = regexp.MustCompile(`(?i)(?:@[a-z0-9_.]+|\buser_[a-z0-9]+\b)`)
	repeatedSeparator = regexp.MustCompile(`\s*,(?:\s*,)+`)
	spaceBeforeComma  = regexp.MustCompile(`\s+,`)
	leadingSeparator  = regexp.MustCompile(`^[\s,;:.-]+`)
	trailingSeparator = regexp.MustCompile(`[\s,;:-]+$`)
	spaceRun          = regexp.MustCompile(`[ \t]{2,}`)
)

// Prefix returns the canonical "<trigger>, <ethnicity> <gender>" opener.
func (id Identity) Prefix() string {
	subject := subjectNoun(id.Gender)
	if eth := strings.TrimSpace(id.Ethnicity); eth != "" {
		subject = eth + " " + subject
	}
	return strings.TrimSpace(id.TriggerWord) + ", " + subject
}

func subjectNoun(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "female", "woman", "f":
		return "woman"
	case "male", "man", "m":
		return "man"
	default:
		return "person"
	}
}

// HasTriggerPrefix reports whether prompt opens with the trigger word,
// ignoring case.
func HasTriggerPrefix(prompt, trigger string) bool {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return true
	}
	p := strings.TrimSpace(prompt)
	if len(p) < len(trigger) || !strings.EqualFold(p[:len(trigger)], trigger) {
		return false
	}
	if len(p) == len(trigger) {
		return true
	}
	next := p[len(trigger)]
	return !isWordByte(next)
}

// Repair classifies what RepairTriggerPrefix did to a prompt.
type Repair int

const (
	// RepairNone means the prompt already opened with the trigger word.
	RepairNone Repair = iota
	// RepairPrefixed means the canonical prefix was prepended to a prompt
	// that mentioned neither the trigger nor a username.
	RepairPrefixed
	// RepairRewritten means username tokens or a misplaced trigger were
	// removed before prefixing.
	RepairRewritten
)

// RepairTriggerPrefix makes sure prompt opens with the user's trigger word.
// A prompt that already does is returned as is. Otherwise username-like
// tokens (@handle, user_xxx) and stray trigger occurrences are removed and the
// canonical prefix is prepended.
func RepairTriggerPrefix(prompt string, id Identity) (string, Repair) {
	trigger := strings.TrimSpace(id.TriggerWord)
	if trigger == "" || HasTriggerPrefix(prompt, trigger) {
		return prompt, RepairNone
	}
	stray := triggerPattern(trigger)
	repair := RepairPrefixed
	if usernamePattern.MatchString(prompt) || stray.MatchString(prompt) {
		repair = RepairRewritten
	}
	body := usernamePattern.ReplaceAllString(prompt, "")
	body = stray.ReplaceAllString(body, "")
	body = repeatedSeparator.ReplaceAllString(body, ",")
	body = spaceBeforeComma.ReplaceAllString(body, ",")
	body = spaceRun.ReplaceAllString(body, " ")
	body = leadingSeparator.ReplaceAllString(strings.TrimSpace(body), "")
	body = trailingSeparator.ReplaceAllString(body, "")
	body = strings.TrimSpace(body)
	if body == "" {
		return id.Prefix(), repair
	}
	return id.Prefix() + ", " + body, repair
}

func triggerPattern(trigger string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\b)` + regexp.QuoteMeta(trigger) + `(?:\b|$)`)
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
