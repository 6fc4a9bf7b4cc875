// Package facttype declares the categories of structured information the
// pipeline extracts from website text. Each fact type binds a retrieval
// query, a pattern-boost signal, a prompt template, and a JSON schema the
// model output must conform to.
package facttype

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// FactType identifies one category of extractable information.
type FactType string

const (
	OfficeLocations     FactType = "office_locations"
	Attorneys           FactType = "attorneys"
	ContactInfo         FactType = "contact_info"
	PracticeAreas       FactType = "practice_areas"
	LanguagesSpoken     FactType = "languages_spoken"
	StatesServed        FactType = "states_served"
	TotalSettlements    FactType = "total_settlements"
	YearFounded         FactType = "year_founded"
	SocialMedia         FactType = "social_media"
	CompanyDescription  FactType = "company_description"
	LawFirmConfirmation FactType = "law_firm_confirmation"
)

// Signal names a lexical pattern class the detector can score. Empty means
// the fact type has no strong lexical signal and retrieval degrades to
// pure semantic ranking.
type Signal string

const (
	SignalNone      Signal = ""
	SignalAddress   Signal = "addresses"
	SignalContact   Signal = "contact"
	SignalMoney     Signal = "money"
	SignalAttorney  Signal = "attorneys"
	SignalLanguage  Signal = "languages"
	SignalFounded   Signal = "founded"
	SignalPractice  Signal = "practice_areas"
	SignalStateName Signal = "states"
)

// Spec is the full contract for one fact type.
type Spec struct {
	Type   FactType
	Query  string // retrieval query embedded to find candidate chunks
	K      int    // chunks to hand to the model
	Boost  Signal // pattern class that boosts candidate ranking
	Schema json.RawMessage

	newPayload func() Validator
}

// Validator is implemented by every payload type. Validate checks the
// structural contract beyond what JSON decoding enforces: required fields,
// value ranges, enumerated values.
type Validator interface {
	Validate() error
}

// ValidatePayload decodes raw model output against the fact type's payload
// shape and runs its structural checks. A decode error and a failed check
// are both schema violations, reported identically to the caller.
func (s *Spec) ValidatePayload(raw []byte) (Validator, error) {
	payload := s.newPayload()
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", s.Type, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s payload: %w", s.Type, err)
	}
	return payload, nil
}

var registry = map[FactType]*Spec{}
var order []FactType

func register(spec *Spec) {
	registry[spec.Type] = spec
	order = append(order, spec.Type)
}

// Lookup returns the spec for a fact type.
func Lookup(ft FactType) (*Spec, error) {
	spec, ok := registry[ft]
	if !ok {
		return nil, fmt.Errorf("unknown fact type: %q", ft)
	}
	return spec, nil
}

// All returns every registered fact type in registration order.
func All() []FactType {
	out := make([]FactType, len(order))
	copy(out, order)
	return out
}

// reflectSchema produces the JSON schema sent to the model as an output
// constraint.
func reflectSchema(v any) json.RawMessage {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	schema := r.Reflect(v)
	schema.Version = ""
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("reflecting schema for %T: %v", v, err))
	}
	return b
}

func init() {
	register(&Spec{
		Type:  OfficeLocations,
		Query: "office location address street city state zip where find us directions map contact headquarters branch main office satellite",
		K:     4,
		Boost: SignalAddress,
		Schema: reflectSchema(&OfficesPayload{}),
		newPayload: func() Validator { return &OfficesPayload{} },
	})
	register(&Spec{
		Type:  Attorneys,
		Query: "attorney lawyer partner associate counsel team staff bio biography",
		K:     4,
		Boost: SignalAttorney,
		Schema: reflectSchema(&AttorneysPayload{}),
		newPayload: func() Validator { return &AttorneysPayload{} },
	})
	register(&Spec{
		Type:  ContactInfo,
		Query: "phone call contact email fax 24/7 24 hours emergency hotline toll free 1-800 after hours available anytime always available weekend",
		K:     3,
		Boost: SignalContact,
		Schema: reflectSchema(&ContactPayload{}),
		newPayload: func() Validator { return &ContactPayload{} },
	})
	register(&Spec{
		Type:  PracticeAreas,
		Query: "practice areas services we handle cases legal services personal injury medical malpractice wrongful death product liability premises liability motor vehicle workplace",
		K:     4,
		Boost: SignalPractice,
		Schema: reflectSchema(&PracticeAreasPayload{}),
		newPayload: func() Validator { return &PracticeAreasPayload{} },
	})
	register(&Spec{
		Type:  LanguagesSpoken,
		Query: "language speak spanish chinese vietnamese french german arabic russian portuguese multilingual bilingual interpreter translator hablamos espanol",
		K:     3,
		Boost: SignalLanguage,
		Schema: reflectSchema(&LanguagesPayload{}),
		newPayload: func() Validator { return &LanguagesPayload{} },
	})
	register(&Spec{
		Type:  StatesServed,
		Query: "states served licensed practice nationwide coverage service areas jurisdiction bar admission admitted multi-state regional tri-state",
		K:     3,
		Boost: SignalStateName,
		Schema: reflectSchema(&StatesPayload{}),
		newPayload: func() Validator { return &StatesPayload{} },
	})
	register(&Spec{
		Type:  TotalSettlements,
		Query: "settlement verdict million billion recovered won obtained secured compensation case result success story client testimonial award judgment",
		K:     5,
		Boost: SignalMoney,
		Schema: reflectSchema(&SettlementsPayload{}),
		newPayload: func() Validator { return &SettlementsPayload{} },
	})
	register(&Spec{
		Type:  YearFounded,
		Query: "founded established began started year history since inception opened first 1970s 1980s 1990s 2000s experience serving",
		K:     1,
		Boost: SignalFounded,
		Schema: reflectSchema(&YearFoundedPayload{}),
		newPayload: func() Validator { return &YearFoundedPayload{} },
	})
	register(&Spec{
		Type:  SocialMedia,
		Query: "social media facebook twitter linkedin instagram youtube contact us footer follow us connect links profiles justia avvo martindale lawyers.com nolo",
		K:     3,
		Boost: SignalNone,
		Schema: reflectSchema(&SocialMediaPayload{}),
		newPayload: func() Validator { return &SocialMediaPayload{} },
	})
	register(&Spec{
		Type:  CompanyDescription,
		Query: "about us our firm company overview history mission vision values who we are law firm practice description specialization experience founding established",
		K:     3,
		Boost: SignalNone,
		Schema: reflectSchema(&DescriptionPayload{}),
		newPayload: func() Validator { return &DescriptionPayload{} },
	})
	register(&Spec{
		Type:  LawFirmConfirmation,
		Query: "law firm attorney lawyer legal practice injury accident personal injury about us",
		K:     2,
		Boost: SignalNone,
		Schema: reflectSchema(&ConfirmationPayload{}),
		newPayload: func() Validator { return &ConfirmationPayload{} },
	})
}
