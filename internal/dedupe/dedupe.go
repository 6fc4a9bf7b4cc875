// Package dedupe merges near-duplicate extracted values (addresses,
// person names) into a canonical set, keeping the most
// information-complete literal for each real-world entity. Numeric
// tokens are never fuzzy-matched: a single-digit difference in a street
// number is a different address, not a typo.
package dedupe

import (
	"regexp"
	"strings"
)

// Kind selects the normalization rules for a value class.
type Kind string

const (
	KindAddress Kind = "address"
	KindName    Kind = "name"
	KindPlain   Kind = "plain"
)

// maxEditDistance is the fuzzy-grouping bound applied to normalized
// forms whose numeric tokens match exactly.
const maxEditDistance = 3

var punctRe = regexp.MustCompile(`[.,;:#\-()/']`)

// Canonical direction: suffix abbreviations expand to full words.
var suffixExpansions = map[string]string{
	"st":   "street",
	"ste":  "suite",
	"rd":   "road",
	"dr":   "drive",
	"ave":  "avenue",
	"blvd": "boulevard",
	"ln":   "lane",
	"hwy":  "highway",
	"pkwy": "parkway",
	"plz":  "plaza",
	"ct":   "court",
	"twp":  "township",
}

// Full state names collapse to USPS codes; existing codes pass through.
var stateAbbr = map[string]string{
	"alabama": "al", "alaska": "ak", "arizona": "az", "arkansas": "ar",
	"california": "ca", "colorado": "co", "connecticut": "ct", "delaware": "de",
	"florida": "fl", "georgia": "ga", "hawaii": "hi", "idaho": "id",
	"illinois": "il", "indiana": "in", "iowa": "ia", "kansas": "ks",
	"kentucky": "ky", "louisiana": "la", "maine": "me", "maryland": "md",
	"massachusetts": "ma", "michigan": "mi", "minnesota": "mn", "mississippi": "ms",
	"missouri": "mo", "montana": "mt", "nebraska": "ne", "nevada": "nv",
	"ohio": "oh", "oklahoma": "ok", "oregon": "or", "pennsylvania": "pa",
	"tennessee": "tn", "texas": "tx", "utah": "ut", "vermont": "vt",
	"virginia": "va", "washington": "wa", "wisconsin": "wi", "wyoming": "wy",
}

// Multi-word state names are replaced before tokenization.
var multiWordStates = map[string]string{
	"new hampshire":  "nh",
	"new jersey":     "nj",
	"new mexico":     "nm",
	"new york":       "ny",
	"north carolina": "nc",
	"north dakota":   "nd",
	"rhode island":   "ri",
	"south carolina": "sc",
	"south dakota":   "sd",
	"west virginia":  "wv",
}

var nameDrop = map[string]struct{}{
	"esq": {}, "esquire": {}, "jr": {}, "sr": {}, "ii": {}, "iii": {},
	"mr": {}, "mrs": {}, "ms": {}, "dr": {},
}

// Qualifier tokens stripped (with their argument) from the grouping key
// so "Suite 400" never separates two renderings of one office.
var qualifiers = map[string]struct{}{
	"suite": {}, "unit": {}, "floor": {}, "fl": {}, "apt": {}, "room": {},
}

// Normalize maps a value to its canonical comparison form: case-folded,
// punctuation stripped, abbreviations expanded one direction, state names
// collapsed to USPS codes. Shared with the evaluator so entity equality
// is the same everywhere.
func Normalize(value string, kind Kind) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = punctRe.ReplaceAllString(v, " ")

	if kind == KindAddress {
		for full, abbr := range multiWordStates {
			v = strings.ReplaceAll(v, full, abbr)
		}
	}

	tokens := strings.Fields(v)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch kind {
		case KindAddress:
			if exp, ok := suffixExpansions[t]; ok {
				t = exp
			} else if abbr, ok := stateAbbr[t]; ok {
				t = abbr
			}
		case KindName:
			if _, ok := nameDrop[t]; ok {
				continue
			}
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

// groupKey strips suite/floor/unit qualifiers (and their argument) from
// the normalized form, so completeness differences don't block grouping.
func groupKey(normalized string) string {
	tokens := strings.Fields(normalized)
	out := make([]string, 0, len(tokens))
	skip := false
	for _, t := range tokens {
		if skip {
			skip = false
			continue
		}
		if _, ok := qualifiers[t]; ok {
			skip = true
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

func numericTokens(s string) []string {
	var nums []string
	for _, t := range strings.Fields(s) {
		if isDigits(t) {
			nums = append(nums, t)
		}
	}
	return nums
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type group struct {
	key  string
	nums []string
	// members in first-appearance order
	literals []string
}

// Canonicalize merges near-duplicate values into one entry per distinct
// entity. Two values share a group when their normalized keys are equal,
// or within maxEditDistance edits with exactly matching numeric tokens.
// Each group emits its most complete literal; output order is the
// insertion order of each group's first appearance.
func Canonicalize(values []string, kind Kind) []string {
	var groups []*group

	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		key := groupKey(Normalize(v, kind))
		nums := numericTokens(key)

		var target *group
		for _, g := range groups {
			if g.key == key {
				target = g
				break
			}
			if numsEqual(g.nums, nums) && levenshtein(g.key, key) <= maxEditDistance {
				target = g
				break
			}
		}
		if target == nil {
			groups = append(groups, &group{key: key, nums: nums, literals: []string{v}})
			continue
		}
		target.literals = append(target.literals, v)
	}

	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = representative(g.literals, kind)
	}
	return out
}

func numsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// representative picks the most information-complete literal: presence of
// a postal code outranks a suite qualifier, which outranks a street
// number; the longer literal wins a full tie, the earliest wins after
// that.
func representative(literals []string, kind Kind) string {
	best := literals[0]
	bestScore := completeness(best, kind)
	for _, l := range literals[1:] {
		score := completeness(l, kind)
		if score > bestScore || (score == bestScore && len(l) > len(best)) {
			best = l
			bestScore = score
		}
	}
	return best
}

var (
	zipRe        = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	suiteRe      = regexp.MustCompile(`(?i)\b(?:suite|ste|unit|floor|fl|apt|room)\b`)
	leadNumberRe = regexp.MustCompile(`^\s*\d{1,5}\s`)
)

func completeness(literal string, kind Kind) int {
	if kind != KindAddress {
		return len(strings.Fields(literal))
	}
	score := 0
	if zipRe.MatchString(literal) {
		score += 4
	}
	if suiteRe.MatchString(literal) {
		score += 2
	}
	if leadNumberRe.MatchString(literal) {
		score++
	}
	return score
}

// levenshtein is the classic edit distance over runes.
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	d := make([][]int, len(ar)+1)
	for i := range d {
		d[i] = make([]int, len(br)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(br); j++ {
		d[0][j] = j
	}
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			d[i][j] = minInt(d[i-1][j]+1, minInt(d[i][j-1]+1, d[i-1][j-1]+cost))
		}
	}
	return d[len(ar)][len(br)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
