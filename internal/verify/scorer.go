package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicdata/corroborate/internal/model"
)

// Scorer judges how well source texts corroborate a record. Implementations
// must be safe for concurrent use. The deterministic thresholding, logging,
// and aggregation around a Scorer never depend on which one is plugged in.
type Scorer interface {
	Name() string
	Score(ctx context.Context, rec *model.Record, sources []model.SourceText) (*model.Judgment, error)
}

const dateToleranceDays = 30

// relevanceThreshold is the per-source score at which a source is judged
// to be about the claimed incident rather than unrelated coverage.
const relevanceThreshold = 35

// HeuristicScorer scores records by keyword, name, location, and date
// overlap with the source text. Fully deterministic; the default scorer.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the default content scorer
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

func (s *HeuristicScorer) Name() string { return "heuristic" }

// Score judges each source independently, then aggregates: the best
// relevant source sets the base score and every additional relevant
// source adds a tier-weighted corroboration bonus (capped at +10).
func (s *HeuristicScorer) Score(_ context.Context, rec *model.Record, sources []model.SourceText) (*model.Judgment, error) {
	if len(sources) == 0 {
		return &model.Judgment{Reasoning: "no source texts available"}, nil
	}

	judgment := &model.Judgment{}
	best := -1
	bestScore := 0

	for _, st := range sources {
		score, reason, corrections := s.scoreSource(rec, st.Text)
		sj := model.SourceJudgment{
			SourceIdx: st.Index,
			URL:       st.Source.URL,
			Score:     score,
			Relevant:  score >= relevanceThreshold,
			Quality:   qualityFor(score),
			Reason:    reason,
		}
		judgment.Sources = append(judgment.Sources, sj)

		if sj.Relevant && score > bestScore {
			bestScore = score
			best = len(judgment.Sources) - 1
			judgment.Corrections = corrections
		}
	}

	if best < 0 {
		// Nothing relevant; report the strongest unrelated score
		for _, sj := range judgment.Sources {
			if sj.Score > judgment.Score {
				judgment.Score = sj.Score
			}
		}
		judgment.Reasoning = "no source judged relevant to the claimed incident"
		return judgment, nil
	}

	bonus := 0
	for i, sj := range judgment.Sources {
		if i == best || !sj.Relevant {
			continue
		}
		tier := model.SourceTier(sources[i].Source.Tier)
		bonus += 2 * tier.Weight()
	}
	if bonus > 10 {
		bonus = 10
	}

	total := bestScore + bonus
	if total > 100 {
		total = 100
	}
	judgment.Score = total
	judgment.Reasoning = fmt.Sprintf("best source scored %d (%s); corroboration bonus %d",
		bestScore, judgment.Sources[best].Reason, bonus)
	return judgment, nil
}

// scoreSource computes the 0-100 corroboration score for one source text.
// Weights: name 30, date 25, location 20, incident keywords 15, agency 10.
func (s *HeuristicScorer) scoreSource(rec *model.Record, text string) (int, string, []model.Correction) {
	lower := strings.ToLower(text)
	score := 0
	var reasons []string
	var corrections []model.Correction

	// Name (30): exact full name 30, multi-word partial 22, fragment 12.
	// Records without a named individual get full credit.
	if !rec.HasNamedVictim() {
		score += 30
		reasons = append(reasons, "name: n/a")
	} else {
		method := ""
		for _, variant := range nameVariations(rec.VictimName) {
			if !strings.Contains(lower, variant) {
				continue
			}
			switch {
			case variant == strings.ToLower(rec.VictimName):
				method = "exact"
			case len(strings.Fields(variant)) >= 2 && method != "exact":
				method = "partial"
			case method == "":
				method = "fragment"
			}
		}
		switch method {
		case "exact":
			score += 30
		case "partial":
			score += 22
		case "fragment":
			score += 12
		}
		if method == "" {
			reasons = append(reasons, "name: NOT FOUND")
		} else {
			reasons = append(reasons, "name: "+method)
		}
	}

	// Date (25): exact 25, within 7d 20, within 14d 14, within tolerance 8
	date := checkDateProximity(text, rec.Date, dateToleranceDays)
	switch {
	case date.Exact:
		score += 25
		reasons = append(reasons, "date: exact")
	case date.Found && date.Proximity <= 7:
		score += 20
		reasons = append(reasons, fmt.Sprintf("date: within %dd", date.Proximity))
	case date.Found && date.Proximity <= 14:
		score += 14
		reasons = append(reasons, fmt.Sprintf("date: within %dd", date.Proximity))
	case date.Found:
		score += 8
		reasons = append(reasons, fmt.Sprintf("date: within %dd", date.Proximity))
	default:
		reasons = append(reasons, "date: NOT FOUND")
	}
	if date.Found && !date.Exact && date.Matched != "" {
		corrections = append(corrections, model.Correction{
			Field:    "date",
			Current:  rec.Date,
			ShouldBe: date.Matched,
			Reason:   "article consistently cites a nearby date",
		})
	}

	// Location (20): city+state 20, city 15, state 8
	cityFound := cityInText(rec.City, lower)
	stateFound := stateInText(rec.State, text, lower)
	switch {
	case cityFound && stateFound:
		score += 20
		reasons = append(reasons, "location: city+state")
	case cityFound:
		score += 15
		reasons = append(reasons, "location: city")
	case stateFound:
		score += 8
		reasons = append(reasons, "location: state")
	default:
		reasons = append(reasons, "location: NOT FOUND")
	}

	// Incident keywords (15): critical quota 10, partial 5; supporting up to 5
	kw := keywordsFor(rec)
	criticalFound := 0
	for _, term := range kw.critical {
		if termInText(term, lower) {
			criticalFound++
		}
	}
	criticalRequired := len(kw.critical)
	if criticalRequired > 2 {
		criticalRequired = 2
	}
	switch {
	case criticalRequired > 0 && criticalFound >= criticalRequired:
		score += 10
		reasons = append(reasons, fmt.Sprintf("critical kw: %d", criticalFound))
	case criticalFound > 0:
		score += 5
		reasons = append(reasons, fmt.Sprintf("critical kw: partial (%d)", criticalFound))
	}

	supportingFound := 0
	for _, term := range kw.supporting {
		if termInText(term, lower) {
			supportingFound++
		}
	}
	// Record-specific terms (ages, nationalities, narrative details)
	// corroborate the same way generic supporting terms do
	for term := range recordKeywords(rec) {
		if termInText(term, lower) {
			supportingFound++
		}
	}
	switch {
	case supportingFound >= 3:
		score += 5
	case supportingFound >= 1:
		score += 2
	}

	// Agency mention (10)
	if agencyMentioned(lower) {
		score += 10
		reasons = append(reasons, "agency: found")
	} else {
		reasons = append(reasons, "agency: NOT FOUND")
	}

	return score, strings.Join(reasons, "; "), corrections
}

// agencyMentioned requires one primary term, or two secondary terms
func agencyMentioned(lower string) bool {
	for _, term := range agencyKeywords.primary {
		if termInText(term, lower) {
			return true
		}
	}
	hits := 0
	for _, term := range agencyKeywords.secondary {
		if termInText(term, lower) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// termInText matches a keyword against lowercased text. Short single
// tokens ("ice", "cbp", "raid") must start at a word boundary so they
// cannot hide inside ordinary words like "police" or "afraid"; the term
// may still extend into a suffix, which keeps plurals matching.
func termInText(term, lower string) bool {
	if strings.Contains(term, " ") || len(term) > 4 {
		return strings.Contains(lower, term)
	}
	idx := 0
	for {
		i := strings.Index(lower[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		if start == 0 || !isWordByte(lower[start-1]) {
			return true
		}
		idx = start + len(term)
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// stateNames expands two-letter codes so "CA" can match "California"
var stateNames = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

// stateInText matches the record's state against the text. Full names
// match as substrings; a two-letter code must appear as a standalone
// uppercase token ("Camarillo, CA") or as its expanded name.
func stateInText(state, text, lower string) bool {
	state = strings.TrimSpace(state)
	if state == "" {
		return false
	}
	if len(state) > 2 {
		return strings.Contains(lower, strings.ToLower(state))
	}

	if name, ok := stateNames[strings.ToLower(state)]; ok && strings.Contains(lower, name) {
		return true
	}

	code := strings.ToUpper(state)
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z')
	}) {
		if token == code {
			return true
		}
	}
	return false
}

// cityInText matches the curated city field against the text, tolerating
// qualifiers ("Camarillo area") and multi-city fields ("LA / Paramount").
func cityInText(city, lower string) bool {
	city = strings.TrimSpace(city)
	if city == "" {
		return false
	}

	candidates := []string{strings.ToLower(city)}
	for _, part := range strings.Split(city, "/") {
		candidates = append(candidates, strings.ToLower(strings.TrimSpace(part)))
	}
	for _, suffix := range []string{" area", " county", " metro", " region"} {
		for _, c := range candidates {
			if strings.HasSuffix(c, suffix) {
				candidates = append(candidates, strings.TrimSuffix(c, suffix))
			}
		}
	}

	for _, c := range candidates {
		if len(c) > 2 && strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func qualityFor(score int) string {
	switch {
	case score >= 70:
		return "excellent"
	case score >= 50:
		return "good"
	case score >= relevanceThreshold:
		return "partial"
	default:
		return "unrelated"
	}
}
