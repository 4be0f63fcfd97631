package model

import "strings"

// State enforcement classifications
const (
	SanctuaryStatusSanctuary     = "sanctuary"
	SanctuaryStatusAntiSanctuary = "anti_sanctuary"
	SanctuaryStatusNeutral       = "neutral"
	SanctuaryStatusCooperative   = "cooperative"
)

// Local sanctuary statuses, following the ILRC color-coding system
const (
	LocalSanctuaryStrong  = "sanctuary_strong"  // Active disentanglement
	LocalSanctuaryLimited = "sanctuary_limited" // Decline detainers, limited cooperation
	LocalSanctuaryPartial = "sanctuary_partial" // Reject detainers but some cooperation
	LocalCooperative      = "cooperative"       // Honor detainers, share info
	LocalAggressive       = "aggressive"        // Active 287(g) or similar agreements
	LocalPolicyConflict   = "policy_conflict"   // Local policy conflicts with state law
	LocalUnknown          = "unknown"
)

// Detainer compliance policies
const (
	DetainerHonorAll          = "honor_all"
	DetainerHonorJudicialOnly = "honor_judicial"
	DetainerHonorFelonyOnly   = "honor_felony"
	DetainerDeclineAll        = "decline_all"
	DetainerCaseByCase        = "case_by_case"
	DetainerStateMandated     = "state_mandated"
)

// StatePolicy is the state-level classification from the reference table
type StatePolicy struct {
	State          string `json:"state"`
	Classification string `json:"classification"` // sanctuary / anti_sanctuary / neutral / cooperative
	DetainerPolicy string `json:"detainer_policy,omitempty"`
	PrimaryLaw     string `json:"primary_law,omitempty"`
	DOJDesignated  bool   `json:"doj_designated,omitempty"`
}

// CityPolicy overrides the state classification for a specific city
type CityPolicy struct {
	City           string `json:"city"`
	State          string `json:"state"`
	LocalStatus    string `json:"local_status"` // From the ILRC-style set above
	DetainerPolicy string `json:"detainer_policy,omitempty"`
	PolicyConflict bool   `json:"policy_conflict,omitempty"` // Local policy contradicts state law
}

// Jurisdictions is the loaded reference table
type Jurisdictions struct {
	States []StatePolicy `json:"states"`
	Cities []CityPolicy  `json:"cities,omitempty"`
}

// StateFor looks up the state policy by name or code, case-insensitive.
func (j *Jurisdictions) StateFor(state string) (StatePolicy, bool) {
	want := strings.ToLower(strings.TrimSpace(state))
	for _, s := range j.States {
		if strings.ToLower(s.State) == want {
			return s, true
		}
	}
	return StatePolicy{}, false
}

// CityFor looks up a city override. City fields in records may carry
// qualifiers ("Camarillo area", "Los Angeles / Paramount"); the first
// matching token wins.
func (j *Jurisdictions) CityFor(city, state string) (CityPolicy, bool) {
	wantState := strings.ToLower(strings.TrimSpace(state))
	for _, candidate := range cityCandidates(city) {
		for _, c := range j.Cities {
			if strings.ToLower(c.City) == candidate &&
				(c.State == "" || strings.ToLower(c.State) == wantState) {
				return c, true
			}
		}
	}
	return CityPolicy{}, false
}

// cityCandidates expands a curated city field into lookup candidates.
func cityCandidates(city string) []string {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(city)
	for _, part := range strings.Split(city, "/") {
		add(part)
	}
	// Drop trailing qualifiers like "area", "county", "metro"
	for _, suffix := range []string{" area", " county", " metro", " region"} {
		if strings.HasSuffix(strings.ToLower(city), suffix) {
			add(city[:len(city)-len(suffix)])
		}
	}
	return out
}
