// Package placeholder substitutes {{KEY}} tokens in prompt templates.
package placeholder

import (
	"regexp"
	"strings"
)

var (
	keyPattern        = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)
	unresolvedPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	spacePattern      = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct  = regexp.MustCompile(`[ \t]+([,.;:!?])`)
)

// Validation is the result of checking a template against a value map.
type Validation struct {
	IsValid bool
	Missing []string
}

// Token formats key as a placeholder token.
func Token(key string) string {
	return "{{" + key + "}}"
}

// Replace substitutes every {{KEY}} whose key is present in values. Tokens
// without a value are left in place so they stay detectable.
func Replace(template string, values map[string]string) string {
	if template == "" || len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, Token(key), value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// ExtractKeys returns the distinct keys in first-appearance order. Only
// uppercase letters and underscores form a key.
func ExtractKeys(template string) []string {
	matches := keyPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		keys = append(keys, m[1])
	}
	return keys
}

// Validate diffs the keys of template against values.
func Validate(template string, values map[string]string) Validation {
	var missing []string
	for _, key := range ExtractKeys(template) {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	return Validation{IsValid: len(missing) == 0, Missing: missing}
}

// Unresolved lists every literal {{...}} token left in text, including
// tokens that ExtractKeys does not recognise as keys.
func Unresolved(text string) []string {
	return unresolvedPattern.FindAllString(text, -1)
}

// CleanBlueprint strips unresolved {{...}} tokens and tidies the whitespace
// they leave behind. Everything else is kept as is.
func CleanBlueprint(prompt string) string {
	if !strings.Contains(prompt, "{{") {
		return prompt
	}
	out := unresolvedPattern.ReplaceAllString(prompt, "")
	out = spacePattern.ReplaceAllString(out, " ")
	out = spaceBeforePunct.ReplaceAllString(out, "$1")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
