package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/civicdata/corroborate/internal/model"
)

// LoadJurisdictions reads the jurisdiction reference table.
// A missing file yields an empty table, not an error: the join is optional.
func LoadJurisdictions(path string) (*model.Jurisdictions, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &model.Jurisdictions{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read jurisdictions: %w", err)
	}

	var j model.Jurisdictions
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse jurisdictions: %w", err)
	}
	return &j, nil
}

// JoinJurisdictions populates each record's sanctuary classification from
// the reference table. State policy fills the state-level fields; a city
// override, when present, fills the local fields and the conflict flag.
// Fields already curated on the record are left alone.
func JoinJurisdictions(records []model.Record, j *model.Jurisdictions) {
	if j == nil {
		return
	}
	for i := range records {
		rec := &records[i]

		if rec.StateSanctuaryStatus == "" {
			if sp, ok := j.StateFor(rec.State); ok {
				rec.StateSanctuaryStatus = sp.Classification
				if rec.DetainerPolicy == "" {
					rec.DetainerPolicy = sp.DetainerPolicy
				}
			}
		}

		if rec.LocalSanctuaryStatus == "" && rec.City != "" {
			if cp, ok := j.CityFor(rec.City, rec.State); ok {
				rec.LocalSanctuaryStatus = cp.LocalStatus
				if cp.DetainerPolicy != "" {
					rec.DetainerPolicy = cp.DetainerPolicy
				}
				if cp.PolicyConflict {
					rec.PolicyConflict = true
				}
			}
		}
	}
}
