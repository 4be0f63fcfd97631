package model

import "time"

// Verdict categorizes a verification outcome
type Verdict string

const (
	VerdictVerified        Verdict = "verified"             // score >= 70
	VerdictLikelyValid     Verdict = "likely_valid"         // 50-69
	VerdictWeakMatch       Verdict = "weak_match"           // 35-49
	VerdictNoMatch         Verdict = "no_match"             // < 35
	VerdictURLInaccessible Verdict = "url_inaccessible"     // No source text could be obtained
	VerdictNoLocalArchive  Verdict = "no_local_archive"     // Local-only mode, nothing archived
	VerdictNeedsReverify   Verdict = "needs_reverification" // Scorer failed after retries
)

// VerdictFromScore applies the contractual thresholds.
// Special verdicts (url_inaccessible, no_local_archive) take precedence
// and are assigned by the runner, never here.
func VerdictFromScore(score int) Verdict {
	switch {
	case score >= 70:
		return VerdictVerified
	case score >= 50:
		return VerdictLikelyValid
	case score >= 35:
		return VerdictWeakMatch
	default:
		return VerdictNoMatch
	}
}

// AllVerdicts lists verdicts in report display order
var AllVerdicts = []Verdict{
	VerdictVerified,
	VerdictLikelyValid,
	VerdictWeakMatch,
	VerdictNoMatch,
	VerdictURLInaccessible,
	VerdictNoLocalArchive,
	VerdictNeedsReverify,
}

// SourceJudgment is the per-source relevance call made by a scorer
type SourceJudgment struct {
	SourceIdx int    `json:"source_index"`
	URL       string `json:"url,omitempty"`
	Relevant  bool   `json:"relevant"`
	Score     int    `json:"score"`             // 0-100 for this source alone
	Quality   string `json:"quality,omitempty"` // excellent/good/partial/unrelated
	Reason    string `json:"reason,omitempty"`
}

// Correction is a suggested field fix, surfaced for human review and
// never applied automatically.
type Correction struct {
	Field    string `json:"field"`
	Current  string `json:"current"`
	ShouldBe string `json:"should_be"`
	Reason   string `json:"reason,omitempty"`
}

// Judgment is a scorer's assessment of one record against its source texts
type Judgment struct {
	Score       int              `json:"score"` // 0-100
	Sources     []SourceJudgment `json:"sources,omitempty"`
	Corrections []Correction     `json:"corrections,omitempty"`
	Reasoning   string           `json:"reasoning,omitempty"`
}

// Result is the full per-record verification outcome for one run
type Result struct {
	RecordID    string           `json:"id"`
	TierFile    string           `json:"tier_file,omitempty"`
	Verdict     Verdict          `json:"verdict"`
	Score       int              `json:"score"`
	Reasoning   string           `json:"reasoning,omitempty"`
	Sources     []SourceJudgment `json:"sources,omitempty"`
	Corrections []Correction     `json:"corrections,omitempty"`
	FetchMethod string           `json:"fetch_method,omitempty"` // local_archive, web_direct, web_wayback, mixed
	SourcesUsed int              `json:"sources_used"`
	VerifiedAt  time.Time        `json:"verified_at"`
}
