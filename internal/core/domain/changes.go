package domain

import "time"

// ChangeSet is the disjoint partition of one scanner pass against the
// known-file watermark map.
type ChangeSet struct {
	// Added are files present in the listing but not in the known map.
	Added []SourceFile

	// Modified are known files whose watermark is strictly newer in the
	// listing than in the known map.
	Modified []SourceFile

	// Removed are IDs of known files that no longer exist at the source:
	// either explicitly trashed, or absent from a complete listing.
	Removed []string
}

// Empty reports whether the change set contains no work.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// DetectChanges diffs a scanner listing against the known watermark map.
//
// Absence-based removal is computed only when the listing is complete.
// An incremental listing only contains changed items, so a known file
// missing from it proves nothing; inferring deletions there would purge
// the index on every incremental pass. Trashed files are always removed
// regardless of listing completeness, since the trashed flag is an
// explicit signal from the source.
func DetectChanges(listing Listing, known map[string]time.Time) ChangeSet {
	var cs ChangeSet

	seen := make(map[string]struct{}, len(listing.Files))
	for _, f := range listing.Files {
		if f.Trashed {
			cs.Removed = append(cs.Removed, f.ID)
			continue
		}
		seen[f.ID] = struct{}{}

		watermark, ok := known[f.ID]
		switch {
		case !ok:
			cs.Added = append(cs.Added, f)
		case f.ModifiedTime.After(watermark):
			cs.Modified = append(cs.Modified, f)
		}
	}

	if listing.Complete {
		for id := range known {
			if _, ok := seen[id]; !ok {
				cs.Removed = append(cs.Removed, id)
			}
		}
	}

	return cs
}
