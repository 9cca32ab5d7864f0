package util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

// Filename scoring weights. See RecoverFilename.
const (
	scriptWeight      = 2
	replacementWeight = 3
	markerWeight      = 1
	sequenceWeight    = 2
)

// Hebrew block, the script team file names are written in.
const (
	scriptFirst = '\u0590'
	scriptLast  = '\u05FF'
)

// mojibakeMarkers are Latin-1 characters that show up when UTF-8 text is
// decoded as Latin-1.
const mojibakeMarkers = "ÃÂ×ØÙÐÑâ"

// mojibakeLeads start a two-character sequence when followed by a
// continuation-range rune (U+0080..U+00BF).
const mojibakeLeads = "×Ã"

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// FilenameScore rates how plausible s is as a correctly decoded name:
//
//	2 × runes in U+0590..U+05FF
//	− 3 × U+FFFD replacement runes
//	− 1 × mojibake marker runes (Ã Â × Ø Ù Ð Ñ â)
//	− 2 × marker-lead sequences ("×" or "Ã" followed by U+0080..U+00BF)
func FilenameScore(s string) int {
	score := 0
	var prev rune
	for _, r := range s {
		switch {
		case r >= scriptFirst && r <= scriptLast:
			score += scriptWeight
		case r == utf8.RuneError:
			score -= replacementWeight
		case strings.ContainsRune(mojibakeMarkers, r):
			score -= markerWeight
		}
		if r >= 0x80 && r <= 0xBF && strings.ContainsRune(mojibakeLeads, prev) {
			score -= sequenceWeight
		}
		prev = r
	}
	return score
}

// RecoverFilename undoes a Latin-1/UTF-8 mix-up in an uploaded file name.
// The name's runes are re-encoded as Latin-1 bytes and those bytes decoded as
// UTF-8; the candidate replaces the original only when it scores strictly
// higher under FilenameScore. Names holding runes above U+00FF cannot be
// mojibake of this kind and are returned unchanged.
func RecoverFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil {
		return name
	}
	candidate := strings.ToValidUTF8(raw, "\uFFFD")
	if candidate == name {
		return name
	}
	if FilenameScore(candidate) > FilenameScore(name) {
		return candidate
	}
	return name
}

// NewStoredName returns a collision-resistant blob key for an upload named
// original: a millisecond timestamp, 16 random hex digits and the lowercased
// original extension when it is a plain one.
func NewStoredName(original string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	ext := strings.ToLower(filepath.Ext(original))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), random, ext)
}

// ContentDisposition builds an attachment header carrying an ASCII fallback
// name and the exact UTF-8 name in RFC 5987 form.
func ContentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiFallback(name), encodeExtValue(name))
}

func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 0x20 && r < 0x7F && r != '"' && r != '\\' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "download"
	}
	return b.String()
}

func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

// isAttrChar reports RFC 5987 attr-char membership.
func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
