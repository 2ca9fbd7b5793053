package version

import (
	"slices"

	"repo-dashboard/internal/model"
)

// SortByPublishedDesc returns a copy of releases ordered newest first by publish
// date, falling back to creation date. Ties keep their input order.
func SortByPublishedDesc(releases []model.ReleaseRecord) []model.ReleaseRecord {
	out := slices.Clone(releases)
	slices.SortStableFunc(out, func(a, b model.ReleaseRecord) int {
		return b.PublishedOrCreated().Compare(a.PublishedOrCreated())
	})
	return out
}

// LatestStable returns the first non-prerelease entry of releases sorted newest first.
func LatestStable(sorted []model.ReleaseRecord) *model.ReleaseRecord {
	for i := range sorted {
		if !sorted[i].Prerelease {
			return &sorted[i]
		}
	}
	return nil
}

// LatestBeta returns the newest prerelease unless it has been superseded, that
// is, unless its base version is at or below the latest stable release.
// Tags that do not carry an X.Y.Z base are never treated as superseded.
func LatestBeta(sorted []model.ReleaseRecord) *model.ReleaseRecord {
	var beta *model.ReleaseRecord
	for i := range sorted {
		if sorted[i].Prerelease {
			beta = &sorted[i]
			break
		}
	}
	if beta == nil {
		return nil
	}

	stable := LatestStable(sorted)
	if stable == nil {
		return beta
	}

	betaBase, ok1 := Base(beta.TagName)
	stableBase, ok2 := Base(stable.TagName)
	if !ok1 || !ok2 {
		return beta
	}
	if Compare(betaBase, stableBase) > 0 {
		return beta
	}
	return nil
}
