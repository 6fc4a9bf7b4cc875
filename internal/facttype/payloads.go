package facttype

import (
	"fmt"
	"strings"
)

// Payload types for each fact type. A nil slice means the model omitted a
// required key (decoded empty arrays are non-nil), which is how required
// fields are told apart from valid "nothing found" answers.

// OfficesPayload lists physical office addresses as literal strings.
type OfficesPayload struct {
	Offices []string `json:"offices" jsonschema:"required"`
}

func (p *OfficesPayload) Validate() error {
	if p.Offices == nil {
		return fmt.Errorf("missing required field %q", "offices")
	}
	for _, o := range p.Offices {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("empty office entry")
		}
	}
	return nil
}

// Attorney is one attorney profile.
type Attorney struct {
	Name  string `json:"name" jsonschema:"required"`
	Title string `json:"title,omitempty"`
}

// AttorneysPayload lists the firm's attorneys.
type AttorneysPayload struct {
	Attorneys []Attorney `json:"attorneys" jsonschema:"required"`
}

func (p *AttorneysPayload) Validate() error {
	if p.Attorneys == nil {
		return fmt.Errorf("missing required field %q", "attorneys")
	}
	for i, a := range p.Attorneys {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("attorney %d: missing required field %q", i, "name")
		}
	}
	return nil
}

// ContactPayload holds phone numbers and email addresses.
type ContactPayload struct {
	PhoneNumbers []string `json:"phone_numbers" jsonschema:"required"`
	Emails       []string `json:"emails" jsonschema:"required"`
}

func (p *ContactPayload) Validate() error {
	if p.PhoneNumbers == nil {
		return fmt.Errorf("missing required field %q", "phone_numbers")
	}
	if p.Emails == nil {
		return fmt.Errorf("missing required field %q", "emails")
	}
	for _, e := range p.Emails {
		if !strings.Contains(e, "@") {
			return fmt.Errorf("invalid email %q", e)
		}
	}
	return nil
}

// PracticeAreasPayload lists legal practice areas.
type PracticeAreasPayload struct {
	PracticeAreas []string `json:"practice_areas" jsonschema:"required"`
}

func (p *PracticeAreasPayload) Validate() error {
	if p.PracticeAreas == nil {
		return fmt.Errorf("missing required field %q", "practice_areas")
	}
	return nil
}

// LanguagesPayload lists languages spoken at the firm.
type LanguagesPayload struct {
	Languages    []string `json:"languages" jsonschema:"required"`
	Multilingual bool     `json:"multilingual"`
}

func (p *LanguagesPayload) Validate() error {
	if p.Languages == nil {
		return fmt.Errorf("missing required field %q", "languages")
	}
	return nil
}

// StatesPayload lists states the firm serves.
type StatesPayload struct {
	States     []string `json:"states" jsonschema:"required"`
	Nationwide bool     `json:"nationwide"`
}

func (p *StatesPayload) Validate() error {
	if p.States == nil {
		return fmt.Errorf("missing required field %q", "states")
	}
	return nil
}

// Settlement is one settlement or verdict result.
type Settlement struct {
	Amount      string `json:"amount" jsonschema:"required"`
	Description string `json:"description,omitempty"`
}

// SettlementsPayload lists settlement and verdict results.
type SettlementsPayload struct {
	Settlements []Settlement `json:"settlements" jsonschema:"required"`
}

func (p *SettlementsPayload) Validate() error {
	if p.Settlements == nil {
		return fmt.Errorf("missing required field %q", "settlements")
	}
	for i, s := range p.Settlements {
		if strings.TrimSpace(s.Amount) == "" {
			return fmt.Errorf("settlement %d: missing required field %q", i, "amount")
		}
	}
	return nil
}

// YearFoundedPayload carries the founding year, 0 when not stated.
type YearFoundedPayload struct {
	YearFounded int `json:"year_founded" jsonschema:"required"`
}

func (p *YearFoundedPayload) Validate() error {
	if p.YearFounded != 0 && (p.YearFounded < 1800 || p.YearFounded > 2100) {
		return fmt.Errorf("year_founded %d out of range", p.YearFounded)
	}
	return nil
}

// SocialMediaPayload holds profile URLs, empty string when absent.
type SocialMediaPayload struct {
	Facebook  string   `json:"facebook"`
	Twitter   string   `json:"twitter"`
	LinkedIn  string   `json:"linkedin"`
	Instagram string   `json:"instagram"`
	YouTube   string   `json:"youtube"`
	Other     []string `json:"other,omitempty"`
}

func (p *SocialMediaPayload) Validate() error { return nil }

// DescriptionPayload is a one-sentence firm description. An empty string
// is the valid "no description found" answer; a pointer tells that apart
// from an omitted key, like the nil-slice convention above.
type DescriptionPayload struct {
	Description *string `json:"description" jsonschema:"required"`
}

func (p *DescriptionPayload) Validate() error {
	if p.Description == nil {
		return fmt.Errorf("missing required field %q", "description")
	}
	return nil
}

// ConfirmationPayload classifies whether the site is a law firm at all.
type ConfirmationPayload struct {
	IsLawFirm        bool `json:"is_law_firm"`
	IsPersonalInjury bool `json:"is_personal_injury"`
}

func (p *ConfirmationPayload) Validate() error { return nil }
