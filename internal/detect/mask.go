package detect

import (
	"sort"
	"strings"
)

const maskChar = '*'

// maskValue reveals the configured prefix and suffix of a value and
// replaces every character in between with the mask character. Values
// shorter than prefix+suffix are masked entirely. Length is preserved,
// so separators inside the value are masked too.
func maskValue(v string, rw revealWidths) string {
	n := len(v)
	if n == 0 {
		return v
	}
	if n <= rw.prefix+rw.suffix {
		return strings.Repeat(string(maskChar), n)
	}
	var b strings.Builder
	b.Grow(n)
	b.WriteString(v[:rw.prefix])
	for i := rw.prefix; i < n-rw.suffix; i++ {
		b.WriteByte(maskChar)
	}
	b.WriteString(v[n-rw.suffix:])
	return b.String()
}

// Mask replaces every detected sensitive value in text with its masked
// form, repeated occurrences included. Replacements run right-to-left
// over the scanned spans so earlier offsets stay valid; spans never
// overlap (scan claims each region once).
func (d *Detector) Mask(text string) string {
	spans := d.scan(text)
	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})
	out := []byte(text)
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		out = append(out[:s.start], append([]byte(s.masked), out[s.end:]...)...)
	}
	return string(out)
}

// MaskEmail partially redacts the local part of an email address,
// keeping the first two and last two characters. Short local parts keep
// only the first character. Non-addresses pass through unchanged.
func MaskEmail(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		return addr
	}
	local, domain := addr[:at], addr[at:]
	if len(local) <= 4 {
		return local[:1] + strings.Repeat(string(maskChar), len(local)-1) + domain
	}
	return local[:2] + strings.Repeat(string(maskChar), len(local)-4) + local[len(local)-2:] + domain
}
