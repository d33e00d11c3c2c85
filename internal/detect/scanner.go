// Package detect scans free text for sensitive-data patterns and masks
// every match at the detection boundary. Raw matched values never leave
// this package: a Finding carries only the masked form, so downstream
// code cannot forward unmasked data even by mistake.
package detect

import (
	"regexp"
	"sort"
)

// PatternKind identifies the category of sensitive data.
type PatternKind string

const (
	KindNationalID PatternKind = "NATIONAL_ID"
	KindTaxID      PatternKind = "TAX_ID"
	KindEmployeeID PatternKind = "EMPLOYEE_ID"
	KindCustom     PatternKind = "CUSTOM"
)

// Finding is a single masked occurrence of sensitive data in text.
type Finding struct {
	Kind   PatternKind
	Masked string
	Start  int
	End    int
}

// Compiled patterns for the fixed detection families.
var (
	// National ID: exactly 16 consecutive digits, word-bounded.
	nationalIDRe = regexp.MustCompile(`\b\d{16}\b`)

	// Tax ID: literal tag followed by 15-16 digits, optional separators.
	// Group 1 captures the number (with any embedded separators).
	taxIDRe = regexp.MustCompile(`(?i)npwp[:\s-]*(\d{2}[.\s-]?\d{3}[.\s-]?\d{3}[.\s-]?\d[.\s-]?\d{3}[.\s-]?\d{3}|\d{15,16})`)

	// Employee ID: known prefix, optional separator, 4-6 digits.
	// Group 1 is the literal prefix+separator, group 2 the digits.
	employeeIDRe = regexp.MustCompile(`(?i)\b((?:EMP|KARY|NIP)[-\s]?)(\d{4,6})\b`)
)

// Detector scans text for the fixed pattern families plus any custom
// patterns supplied at construction. Detection is pure: no I/O, no state
// mutation, safe for concurrent use.
type Detector struct {
	custom []customPattern
}

type customPattern struct {
	name   string
	re     *regexp.Regexp
	reveal revealWidths
}

type revealWidths struct {
	prefix int
	suffix int
}

var kindReveal = map[PatternKind]revealWidths{
	KindNationalID: {prefix: 3, suffix: 3},
	KindTaxID:      {prefix: 2, suffix: 2},
	KindEmployeeID: {prefix: 1, suffix: 1},
}

// New creates a Detector. Invalid custom pattern configuration is a
// construction-time error; a nil config yields the fixed families only.
func New(cfg *Config) (*Detector, error) {
	custom, err := compileCustom(cfg)
	if err != nil {
		return nil, err
	}
	return &Detector{custom: custom}, nil
}

// span is one matched occurrence before deduplication. raw stays inside
// this package; only masked escapes.
type span struct {
	kind   PatternKind
	raw    string
	masked string
	start  int
	end    int
}

// scan finds every occurrence of every pattern family, non-overlapping,
// unsorted. Tax IDs run first so a 16-digit tax number is not also
// claimed by the national-ID family.
func (d *Detector) scan(text string) []span {
	if text == "" {
		return nil
	}

	var spans []span

	overlaps := func(start, end int) bool {
		for _, s := range spans {
			if start < s.end && end > s.start {
				return true
			}
		}
		return false
	}

	for _, sub := range taxIDRe.FindAllStringSubmatchIndex(text, -1) {
		if sub[2] >= 0 && sub[3] >= 0 {
			raw := text[sub[2]:sub[3]]
			spans = append(spans, span{
				kind:   KindTaxID,
				raw:    raw,
				masked: maskValue(raw, kindReveal[KindTaxID]),
				start:  sub[2],
				end:    sub[3],
			})
		}
	}

	for _, loc := range nationalIDRe.FindAllStringIndex(text, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		spans = append(spans, span{
			kind:   KindNationalID,
			raw:    raw,
			masked: maskValue(raw, kindReveal[KindNationalID]),
			start:  loc[0],
			end:    loc[1],
		})
	}

	for _, sub := range employeeIDRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(sub[0], sub[1]) {
			continue
		}
		// Only the digits are masked; the literal prefix stays visible.
		prefix := text[sub[2]:sub[3]]
		digits := text[sub[4]:sub[5]]
		spans = append(spans, span{
			kind:   KindEmployeeID,
			raw:    prefix + digits,
			masked: prefix + maskValue(digits, kindReveal[KindEmployeeID]),
			start:  sub[0],
			end:    sub[1],
		})
	}

	for _, cp := range d.custom {
		for _, loc := range cp.re.FindAllStringIndex(text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			raw := text[loc[0]:loc[1]]
			spans = append(spans, span{
				kind:   KindCustom,
				raw:    raw,
				masked: maskValue(raw, cp.reveal),
				start:  loc[0],
				end:    loc[1],
			})
		}
	}

	return spans
}

// Scan finds all sensitive patterns in text and returns deduplicated,
// masked findings sorted by position (earliest first). A raw value that
// occurs more than once is reported once per kind, at its first position.
func (d *Detector) Scan(text string) []Finding {
	spans := d.scan(text)
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	seen := make(map[string]bool)
	var findings []Finding
	for _, s := range spans {
		key := string(s.kind) + "\x00" + s.raw
		if seen[key] {
			continue
		}
		seen[key] = true
		findings = append(findings, Finding{
			Kind:   s.kind,
			Masked: s.masked,
			Start:  s.start,
			End:    s.end,
		})
	}

	return findings
}

// HasSensitive reports whether text contains any detectable sensitive data.
func (d *Detector) HasSensitive(text string) bool {
	return len(d.scan(text)) > 0
}
