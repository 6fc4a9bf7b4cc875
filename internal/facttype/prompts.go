package facttype

import (
	"fmt"
	"strings"
)

// SystemPrompt is the shared instruction set for every extraction call.
const SystemPrompt = `You are a fact extraction system for law firm websites. Extract structured facts from the provided website text.

RULES:
1. Extract ONLY explicitly stated facts - never infer or assume
2. Copy literal values (addresses, names, amounts) exactly as written in the text
3. If the text contains no relevant facts, return the valid empty form of the schema (empty arrays, empty strings, 0)
4. Return ONLY JSON conforming to the schema, no additional text`

var taskInstructions = map[FactType]string{
	OfficeLocations:     "List every physical office address mentioned, each as one complete literal string including street, city, state, and zip when present.",
	Attorneys:           "List every attorney named in the text with their title when stated.",
	ContactInfo:         "List every phone number and email address exactly as written.",
	PracticeAreas:       "List every legal practice area the firm says it handles.",
	LanguagesSpoken:     "List every language the firm says it speaks, and whether it advertises itself as multilingual.",
	StatesServed:        "List every US state the firm says it serves or is licensed in, and whether it claims nationwide coverage.",
	TotalSettlements:    "List every settlement, verdict, or recovery amount mentioned, with a short description of the case when given.",
	YearFounded:         "Report the year the firm was founded or established. Use 0 if the text does not state it.",
	SocialMedia:         "Report the firm's social media profile URLs. Use an empty string for networks not mentioned.",
	CompanyDescription:  "Write a one-sentence description of the firm using only what the text states.",
	LawFirmConfirmation: "Report whether this website belongs to a law firm, and whether it practices personal injury law.",
}

// BuildPrompt renders the extraction prompt for a fact type from the
// retrieved chunk texts. Chunks are separated so the model sees them as
// independent fragments of the same site.
func (s *Spec) BuildPrompt(chunkTexts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", taskInstructions[s.Type])
	b.WriteString("Website text:\n\n---\n")
	b.WriteString(strings.Join(chunkTexts, "\n---\n"))
	b.WriteString("\n---\n\nReturn JSON matching the schema.")
	return b.String()
}
