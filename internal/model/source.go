package model

import "time"

// Source represents one cited article backing a record
type Source struct {
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`       // Publisher name
	Tier      int    `json:"tier,omitempty"`       // 1-4, lower = more authoritative
	Primary   bool   `json:"primary,omitempty"`    // At most one per record is expected
	Archived  bool   `json:"archived,omitempty"`   // Whether a local archive exists
	LocalPath string `json:"local_path,omitempty"` // Path to archived text, if any
}

// SourceTier classifications mirror the dataset's reliability scale
type SourceTier int

const (
	TierOfficial       SourceTier = 1 // Government data, court records, FOIA releases
	TierInvestigative  SourceTier = 2 // FOIA-obtained / systematic investigative journalism
	TierNewsSystematic SourceTier = 3 // News media found via systematic search
	TierNewsAdHoc      SourceTier = 4 // News media found ad-hoc (selection bias risk)
)

func (t SourceTier) String() string {
	switch t {
	case TierOfficial:
		return "official"
	case TierInvestigative:
		return "investigative"
	case TierNewsSystematic:
		return "news_systematic"
	case TierNewsAdHoc:
		return "news_adhoc"
	default:
		return "unknown"
	}
}

// Weight returns the corroboration weight for a tier; lower tiers count more.
func (t SourceTier) Weight() int {
	if t < TierOfficial || t > TierNewsAdHoc {
		return 1
	}
	return int(5 - t)
}

// SourceText pairs a source with its locally available article text
type SourceText struct {
	Index  int    // Position in the record's sources array
	Source Source
	Text   string
	Origin TextOrigin // Where the text came from
	Path   string     // Local path or URL actually used
}

// TextOrigin identifies how a source text was obtained
type TextOrigin string

const (
	OriginLocalArchive TextOrigin = "local_archive"
	OriginWebDirect    TextOrigin = "web_direct"
	OriginWebWayback   TextOrigin = "web_wayback"
)

// FetchStatus records the outcome of one archive-fetch attempt
type FetchStatus struct {
	RecordID  string     `json:"record_id"`
	SourceIdx int        `json:"source_index"`
	URL       string     `json:"url"`
	OK        bool       `json:"ok"`
	Skipped   bool       `json:"skipped,omitempty"` // Already archived
	Origin    TextOrigin `json:"origin,omitempty"`
	Reason    string     `json:"reason,omitempty"` // unreachable, unparseable, robots_disallowed, archive_write_failed
	Bytes     int        `json:"bytes,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Fetch failure reasons
const (
	ReasonUnreachable        = "unreachable"
	ReasonUnparseable        = "unparseable"
	ReasonRobotsDisallowed   = "robots_disallowed"
	ReasonArchiveWriteFailed = "archive_write_failed"
)
