package verify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/civicdata/corroborate/internal/model"
)

// agencyKeywords must appear for immigration-enforcement content. A primary
// hit is enough on its own; secondary terms need two hits to count.
var agencyKeywords = struct {
	primary   []string
	secondary []string
}{
	primary: []string{
		"ice", "immigration and customs enforcement",
		"cbp", "customs and border protection", "border patrol",
		"dhs", "department of homeland security",
		"ero", "enforcement and removal operations",
		"immigration agent", "federal immigration", "federal agent",
	},
	secondary: []string{
		"immigration", "deportation", "deport", "detained", "detention",
		"undocumented", "immigration enforcement", "enforcement operation",
		"immigration raid",
	},
}

// keywordSet splits incident-type terms into critical (define the incident)
// and supporting (corroborate its circumstances).
type keywordSet struct {
	critical   []string
	supporting []string
}

var incidentKeywords = map[string]keywordSet{
	model.IncidentDeathInCustody: {
		critical: []string{"died", "death", "dead", "passed away", "deceased", "fatality", "fatal"},
		supporting: []string{
			"custody", "detention center", "detention facility", "processing center",
			"medical", "hospital", "emergency", "unresponsive",
			"autopsy", "medical examiner", "cause of death",
			"neglect", "medical care", "illness", "condition",
		},
	},
	model.IncidentShootingByAgent: {
		critical: []string{"shot", "shooting", "gunfire", "fired", "gunshot", "bullet"},
		supporting: []string{
			"weapon", "firearm", "gun", "pistol", "rifle",
			"wounded", "injured", "killed", "fatal",
			"vehicle", "traffic stop", "pursuit", "chase",
			"suspect", "threat", "officer-involved",
		},
	},
	model.IncidentShootingAtAgent: {
		critical: []string{"shot", "shooting", "gunfire", "fired", "attack", "ambush"},
		supporting: []string{
			"officer", "agent", "facility", "wounded", "injured",
			"suspect", "attacker", "shooter",
		},
	},
	model.IncidentLessLethal: {
		critical: []string{
			"taser", "tased", "pepper spray", "pepper ball", "rubber bullet",
			"tear gas", "flash bang", "baton", "force",
		},
		supporting: []string{
			"protest", "protester", "demonstrator", "activist",
			"injured", "injury", "hospital", "treated",
			"confrontation", "crowd", "dispersed",
		},
	},
	model.IncidentPhysicalForce: {
		critical: []string{
			"force", "assault", "attacked", "beaten", "struck", "pushed",
			"shoved", "restrained", "choke", "tackle",
		},
		supporting: []string{
			"injury", "injured", "hospitalized", "treated",
			"excessive", "brutal", "violent",
		},
	},
	model.IncidentMassRaid: {
		critical: []string{"raid", "raided", "sweep", "operation", "arrested", "detained"},
		supporting: []string{
			"workplace", "factory", "farm", "restaurant", "construction",
			"workers", "employees", "multiple", "dozen", "hundreds",
			"apartment", "neighborhood", "community",
		},
	},
	model.IncidentWrongfulDetention: {
		critical: []string{
			"wrongful", "mistaken", "error", "citizen", "legal resident",
			"daca", "released", "lawsuit",
		},
		supporting: []string{
			"detained", "held", "hours", "days", "identification",
			"documentation", "proof", "birth certificate", "passport",
		},
	},
	model.IncidentWrongfulDeportation: {
		critical: []string{
			"wrongful", "mistaken", "error", "deported", "removal", "lawsuit",
		},
		supporting: []string{
			"citizen", "legal resident", "returned", "court order",
			"documentation", "due process",
		},
	},
}

// keywordsFor resolves the keyword set for a record, falling back to
// outcome text when the incident type has no direct mapping.
func keywordsFor(rec *model.Record) keywordSet {
	incidentType := strings.ToLower(rec.IncidentType)
	incidentType = strings.NewReplacer("-", "_", " ", "_").Replace(incidentType)

	if incidentType != "" {
		for key, set := range incidentKeywords {
			if strings.Contains(incidentType, key) || strings.Contains(key, incidentType) {
				return set
			}
		}
	}

	outcome := strings.ToLower(rec.Outcome + " " + rec.OutcomeNote)
	switch {
	case strings.Contains(outcome, "death") || strings.Contains(outcome, "died"):
		return incidentKeywords[model.IncidentDeathInCustody]
	case strings.Contains(outcome, "shot") || strings.Contains(outcome, "shooting"):
		return incidentKeywords[model.IncidentShootingByAgent]
	case strings.Contains(outcome, "raid"):
		return incidentKeywords[model.IncidentMassRaid]
	}
	return keywordSet{}
}

var (
	wordPattern   = regexp.MustCompile(`\b[a-z]{4,}\b`)
	numberPattern = regexp.MustCompile(`\b\d{1,3}\b`)
	namePattern   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

// stopwords excluded from record-specific keyword extraction
var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "were": true,
	"been": true, "have": true, "their": true, "which": true, "would": true,
	"there": true, "about": true, "into": true, "them": true, "than": true,
	"then": true, "some": true, "what": true, "when": true, "your": true,
	"said": true, "each": true, "after": true, "before": true, "during": true,
	"being": true, "verified": true,
}

// recordKeywords extracts distinguishing terms from a record's free text,
// so generic incident keywords are not the only narrative signal.
func recordKeywords(rec *model.Record) map[string]bool {
	keywords := make(map[string]bool)

	for _, text := range []string{rec.Outcome, rec.OutcomeNote, rec.Notes} {
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)

		for _, word := range wordPattern.FindAllString(lower, -1) {
			if !stopwords[word] {
				keywords[word] = true
			}
		}
		for _, num := range numberPattern.FindAllString(text, -1) {
			keywords[num] = true
		}
		for _, name := range namePattern.FindAllString(text, -1) {
			keywords[strings.ToLower(name)] = true
		}
	}

	if rec.VictimAge > 0 {
		keywords[strconv.Itoa(rec.VictimAge)] = true
	}
	if rec.VictimNationality != "" {
		keywords[strings.ToLower(rec.VictimNationality)] = true
	}
	if rec.Agency != "" {
		keywords[strings.ToLower(rec.Agency)] = true
	}
	return keywords
}

// nameVariations generates match candidates for a person's name:
// full name, "First Last" collapse, "Last, First", standalone first/last,
// and hyphen splits.
func nameVariations(name string) []string {
	if name == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(name)
	parts := strings.Fields(name)
	if len(parts) >= 2 {
		first, last := parts[0], parts[len(parts)-1]
		add(first + " " + last)
		add(last + ", " + first)
		if len(last) >= 4 {
			add(last)
		}
		if len(first) >= 4 {
			add(first)
		}
	}

	if strings.Contains(name, "-") {
		add(strings.ReplaceAll(name, "-", " "))
		for _, part := range strings.Split(name, "-") {
			if len(part) >= 4 {
				add(part)
			}
		}
	}
	return out
}
