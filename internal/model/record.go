package model

import "strings"

// Record represents a single documented incident loaded from a tier file
type Record struct {
	ID           string `json:"id"`             // Tier-type-sequence convention, e.g. "T2-S-014"
	Date         string `json:"date"`           // ISO date; may be truncated to "2025-07" or "2025"
	State        string `json:"state"`          // Two-letter code or full name, as curated
	City         string `json:"city,omitempty"` // May carry qualifiers like "Camarillo area"
	IncidentType string `json:"incident_type"`
	Category     string `json:"victim_category,omitempty"` // Who was affected
	Outcome      string `json:"outcome,omitempty"`
	OutcomeNote  string `json:"outcome_detail,omitempty"`

	VictimName        string `json:"victim_name,omitempty"`
	VictimAge         int    `json:"victim_age,omitempty"`
	VictimNationality string `json:"victim_nationality,omitempty"`
	Agency            string `json:"agency,omitempty"`

	AffectedCount int    `json:"affected_count,omitempty"` // People directly affected (>= 1)
	Notes         string `json:"notes,omitempty"`          // Free-text narrative

	Sources []Source `json:"sources"`

	// Legacy flat-source fields; normalized into Sources by the store
	LegacySourceURL  string `json:"source_url,omitempty"`
	LegacySourceName string `json:"source_name,omitempty"`
	LegacySourceTier int    `json:"source_tier,omitempty"`

	// Jurisdiction classification, populated by cross-reference join
	StateSanctuaryStatus string `json:"state_sanctuary_status,omitempty"`
	LocalSanctuaryStatus string `json:"local_sanctuary_status,omitempty"`
	DetainerPolicy       string `json:"detainer_policy,omitempty"`
	PolicyConflict       bool   `json:"policy_conflict,omitempty"`

	// TierFile records which tier file the record came from (set by the store)
	TierFile string `json:"-"`
}

// IncidentType values tracked in the dataset
const (
	IncidentDeathInCustody      = "death_in_custody"
	IncidentShootingByAgent     = "shooting_by_agent"
	IncidentShootingAtAgent     = "shooting_at_agent"
	IncidentLessLethal          = "less_lethal"
	IncidentPhysicalForce       = "physical_force"
	IncidentWrongfulDetention   = "wrongful_detention"
	IncidentWrongfulDeportation = "wrongful_deportation"
	IncidentMassRaid            = "mass_raid"
)

// Victim categories (closed set)
const (
	CategoryDetainee            = "detainee"
	CategoryEnforcementTarget   = "enforcement_target"
	CategoryProtester           = "protester"
	CategoryJournalist          = "journalist"
	CategoryBystander           = "bystander"
	CategoryUSCitizenCollateral = "us_citizen_collateral"
	CategoryOfficer             = "officer"
)

// Outcome categories
const (
	OutcomeDeath         = "death"
	OutcomeSeriousInjury = "serious_injury"
	OutcomeInjury        = "injury"
	OutcomeNoInjury      = "no_injury"
	OutcomeDetained      = "detained"
	OutcomeArrested      = "arrested"
	OutcomeReleased      = "released"
	OutcomeDeported      = "deported"
	OutcomeMultiple      = "multiple"
	OutcomeNone          = "none"
)

// HasNamedVictim reports whether the record identifies a specific individual.
// "Unknown" and "Multiple" placeholders do not count.
func (r *Record) HasNamedVictim() bool {
	if r.VictimName == "" {
		return false
	}
	lower := strings.ToLower(r.VictimName)
	return !strings.Contains(lower, "unknown") && !strings.Contains(lower, "multiple")
}
