// Package pattern scores chunks for lexical signals correlated with each
// fact type: complete street addresses, phone and email tokens, settlement
// amounts, attorney titles, language names, founded-year phrasing.
// Purely semantic retrieval under-ranks chunks whose decisive tokens are
// semantically boring (zip codes, dollar figures); these scores feed the
// retriever as a ranking boost.
package pattern

import (
	"regexp"
	"strings"

	"github.com/hurttlocker/distill/internal/facttype"
)

var (
	// Complete street addresses only: number + street name + street type.
	addressRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:^|\s|[\*\-•\[\(]\s*)\d{1,5}\s+(?:[NSEW]\.?\s+)?[\w\s]+?(?:Street|St\.?|Avenue|Ave\.?|Boulevard|Blvd\.?|Drive|Dr\.?|Lane|Ln\.?|Road|Rd\.?|Way|Court|Ct\.?|Plaza|Pl\.?|Circle|Cir\.?|Parkway|Pkwy\.?|Highway|Hwy\.?|Square|Concourse|Center|Terrace|Trail|Park|Place)\b`),
		regexp.MustCompile(`(?i)\d{1,5}\s+(?:GA|US|State Route|Route|SR|Highway|Hwy|Interstate|I)-?\d+`),
		regexp.MustCompile(`(?i)P\.?O\.?\s*Box\s+\d+`),
	}

	zipRe = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	phoneRes = []*regexp.Regexp{
		regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`),
		regexp.MustCompile(`\+1[\s.-]?\d{3}[\s.-]?\d{3}[\s.-]?\d{4}`),
		regexp.MustCompile(`1-\d{3}-\d{3}-\d{4}`),
	}
	yearLikeRe = regexp.MustCompile(`^\(?(?:19|20)\d{2}`)

	moneyRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d+)?(?:\s*(?:million|mil|billion|bil|thousand|k|m|b))?`),
		regexp.MustCompile(`(?i)\b\d+(?:,\d{3})*(?:\.\d+)?\s*(?:million|mil|thousand|k|m)\s*(?:in\s+)?(?:settlement|verdict|award|compensation|recovery|damages)`),
		regexp.MustCompile(`(?i)\b(?:one|two|three|four|five|six|seven|eight|nine|ten|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|million|billion)(?:\s+(?:hundred|thousand|million|billion))?\s+dollars?\b`),
	}

	attorneyRe = regexp.MustCompile(`(?i)\b(?:attorney|lawyer|esq\.?|esquire|partner|associate|counsel)\b`)

	languageRe = regexp.MustCompile(`(?i)\b(?:spanish|chinese|mandarin|cantonese|vietnamese|french|german|arabic|russian|portuguese|korean|tagalog|polish|hindi|multilingual|bilingual|interpreter|translator|hablamos|espanol|español)\b`)

	foundedRe = regexp.MustCompile(`(?i)\b(?:founded|established|est\.?|since|serving\s+.*?\s+since|opened)\b[^.]{0,40}\b(?:19|20)\d{2}\b`)

	practiceRe = regexp.MustCompile(`(?i)\b(?:personal injury|criminal defense|family law|divorce|bankruptcy|immigration|real estate|estate planning|workers'? compensation|medical malpractice|employment law|intellectual property|wrongful death|product liability|premises liability)\b`)

	stateRe = regexp.MustCompile(`(?i)\b(?:licensed|admitted|serving|jurisdiction|nationwide|statewide|tri-state|multi-state)\b`)
)

// Flags summarizes the signal classes present in a chunk. Stored with the
// chunk so retrieval can filter and boost without rescanning text.
type Flags struct {
	AddressCount  int  `json:"address_count,omitempty"`
	EmailCount    int  `json:"email_count,omitempty"`
	PhoneCount    int  `json:"phone_count,omitempty"`
	MoneyCount    int  `json:"money_count,omitempty"`
	HasZip        bool `json:"has_zip,omitempty"`
	HasAttorney   bool `json:"has_attorney,omitempty"`
	HasLanguage   bool `json:"has_language,omitempty"`
	HasFounded    bool `json:"has_founded,omitempty"`
	HasPractice   bool `json:"has_practice,omitempty"`
	HasStateTerms bool `json:"has_state_terms,omitempty"`
}

// Scan extracts signal flags from chunk text. Pure function of the text.
func Scan(text string) Flags {
	f := Flags{
		AddressCount:  countDistinct(text, addressRes),
		EmailCount:    len(distinct(emailRe.FindAllString(text, -1))),
		MoneyCount:    countDistinct(text, moneyRes),
		HasZip:        zipRe.MatchString(text),
		HasAttorney:   attorneyRe.MatchString(text),
		HasLanguage:   languageRe.MatchString(text),
		HasFounded:    foundedRe.MatchString(text),
		HasPractice:   practiceRe.MatchString(text),
		HasStateTerms: stateRe.MatchString(text),
	}

	var phones []string
	for _, re := range phoneRes {
		for _, m := range re.FindAllString(text, -1) {
			// Four-digit years with punctuation land in the loosest phone
			// pattern; drop anything that starts like one.
			if yearLikeRe.MatchString(m) {
				continue
			}
			phones = append(phones, m)
		}
	}
	f.PhoneCount = len(distinct(phones))

	return f
}

// Detect returns a boost in [0,1] for how strongly the chunk's lexical
// signals suggest it carries the given fact type. Monotone in the number
// of distinct signals with diminishing returns: the first match carries
// most of the weight, repeats of the same keyword add nothing.
func Detect(text string, ft facttype.FactType) float64 {
	spec, err := facttype.Lookup(ft)
	if err != nil {
		return 0
	}
	return Boost(Scan(text), spec.Boost)
}

// Boost converts stored flags into the ranking boost for one signal
// class. Fact types with no lexical signal always score 0, degrading
// retrieval to pure semantic ranking.
func Boost(f Flags, sig facttype.Signal) float64 {
	switch sig {
	case facttype.SignalAddress:
		return boostFromCounts(f.AddressCount, f.HasZip)
	case facttype.SignalContact:
		return boostFromCounts(f.EmailCount + f.PhoneCount)
	case facttype.SignalMoney:
		return boostFromCounts(f.MoneyCount)
	case facttype.SignalAttorney:
		return boostFromCounts(boolCount(f.HasAttorney))
	case facttype.SignalLanguage:
		return boostFromCounts(boolCount(f.HasLanguage))
	case facttype.SignalFounded:
		return boostFromCounts(boolCount(f.HasFounded))
	case facttype.SignalPractice:
		return boostFromCounts(boolCount(f.HasPractice))
	case facttype.SignalStateName:
		return boostFromCounts(boolCount(f.HasStateTerms))
	default:
		return 0
	}
}

func boostFromCounts(primary int, secondary ...bool) float64 {
	score := steps(primary)
	for _, s := range secondary {
		if s {
			score += 0.15
		}
	}
	if score > 1 {
		return 1
	}
	return score
}

// steps implements the diminishing-return ladder over distinct matches.
func steps(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 0.5
	case n == 2:
		return 0.75
	default:
		return 0.85
	}
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

func countDistinct(text string, res []*regexp.Regexp) int {
	var all []string
	for _, re := range res {
		all = append(all, re.FindAllString(text, -1)...)
	}
	return len(distinct(all))
}

func distinct(matches []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
