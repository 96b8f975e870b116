package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"seller-center/internal/model"
)

const maxFileNameRunes = 255

var unsafeFileNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Blob storage accepts these, but Windows sellers cannot download them back.
var reservedFileNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// cleanFileName turns a name picked in the browser into one that is safe to
// send for presigning. Invisible and control characters are dropped, path
// separators and shell metacharacters become underscores.
func cleanFileName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: fileName is required", model.ErrInvalidInput)
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimSpace(unsafeFileNameChars.ReplaceAllString(b.String(), "_"))
	if runes := []rune(cleaned); len(runes) > maxFileNameRunes {
		cleaned = string(runes[:maxFileNameRunes])
	}

	switch {
	case cleaned == "":
		return "", fmt.Errorf("%w: fileName has no usable characters", model.ErrInvalidInput)
	case strings.HasPrefix(cleaned, "."):
		return "", fmt.Errorf("%w: fileName must not start with a dot", model.ErrInvalidInput)
	}

	stem, _, _ := strings.Cut(cleaned, ".")
	if _, reserved := reservedFileNames[strings.ToUpper(stem)]; reserved {
		return "", fmt.Errorf("%w: fileName %q is reserved", model.ErrInvalidInput, cleaned)
	}
	return cleaned, nil
}
