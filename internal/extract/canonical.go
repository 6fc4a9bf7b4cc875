package extract

import (
	"encoding/json"

	"github.com/hurttlocker/distill/internal/dedupe"
	"github.com/hurttlocker/distill/internal/facttype"
)

// canonicalPayload deduplicates surface-form variants inside a validated
// payload. Only fact types whose entries are real-world entities with
// multiple spellings (addresses, people) are touched; everything else
// passes through unchanged. The input has already passed schema
// validation, so a decode failure here means a bug upstream and the raw
// payload is returned as-is rather than dropped.
func canonicalPayload(ft facttype.FactType, raw []byte) []byte {
	switch ft {
	case facttype.OfficeLocations:
		var p facttype.OfficesPayload
		if json.Unmarshal(raw, &p) != nil || len(p.Offices) == 0 {
			return raw
		}
		p.Offices = dedupe.Canonicalize(p.Offices, dedupe.KindAddress)
		out, err := json.Marshal(&p)
		if err != nil {
			return raw
		}
		return out

	case facttype.Attorneys:
		var p facttype.AttorneysPayload
		if json.Unmarshal(raw, &p) != nil || len(p.Attorneys) == 0 {
			return raw
		}
		names := make([]string, len(p.Attorneys))
		for i, a := range p.Attorneys {
			names[i] = a.Name
		}
		keep := make(map[string]bool, len(names))
		for _, rep := range dedupe.Canonicalize(names, dedupe.KindName) {
			keep[rep] = true
		}
		kept := p.Attorneys[:0]
		for _, a := range p.Attorneys {
			if keep[a.Name] {
				kept = append(kept, a)
				delete(keep, a.Name)
			}
		}
		p.Attorneys = kept
		out, err := json.Marshal(&p)
		if err != nil {
			return raw
		}
		return out
	}
	return raw
}
