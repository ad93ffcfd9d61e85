package library

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Stem length limits, matching what common filesystems accept for UTF-8 names.
const (
	maxStemBytes       = 200
	truncatedStemRunes = 100
)

// unsafeFilenameChars matches path separators, reserved Windows characters
// and ASCII control characters.
var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SafeFilename returns name reduced to a single safe path component.
// Letters in any script are kept; only separators, reserved characters and
// control characters are removed.
//
// Examples:
//   - "../etc/passwd" -> "etcpasswd"
//   - "  report.md. " -> "report.md"
//   - "..." -> "unnamed"
func SafeFilename(name string) string {
	name = norm.NFC.String(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, ". ")

	if name == "" || strings.HasPrefix(name, ".") {
		name = "unnamed" + name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if len(stem) > maxStemBytes {
		stem = truncateRunes(stem, truncatedStemRunes)
	}
	return stem + ext
}

// truncateRunes keeps the first n runes of s without splitting a character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
