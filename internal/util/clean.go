package util

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Windows-1252 leftovers and typographic characters that confuse downstream
// tokenizers get normalized to their plain equivalents.
var charReplacementMap = map[string]string{
	"‘": "'", "’": "'", "“": "\"",
	"”": "\"", "–": "-", "—": "--", "…": "...",
	" ": " ", "": "-", "": "--", "": "'",
	"": "'", "": "\"", "": "\"",
}

// IsLikelyBinary reports whether the content looks like binary data.
// A NUL byte in the first 512 bytes is taken as binary.
func IsLikelyBinary(content []byte) bool {
	n := len(content)
	if n > 512 {
		n = 512
	}
	return bytes.Contains(content[:n], []byte{0})
}

// CleanContent strips the UTF-8 BOM, repairs invalid UTF-8 and normalizes
// typographic punctuation. src is used only for log context.
func CleanContent(content []byte, src string) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	if !utf8.Valid(content) {
		log.WithField("source", src).Warn("invalid UTF-8, replacing invalid characters")
		content = bytes.ToValidUTF8(content, []byte(string(utf8.RuneError)))
	}

	str := string(content)
	for bad, good := range charReplacementMap {
		str = strings.ReplaceAll(str, bad, good)
	}

	if !utf8.ValidString(str) {
		return "", fmt.Errorf("invalid UTF-8 after replacements: %s", src)
	}
	return str, nil
}
