// Package analytics will track link usage statistics. Tracking is an
// explicit stub for now: calls are wired at the access points but
// record nothing.
package analytics

import "time"

type LinkStats struct {
	TotalViews     int        `json:"total_views"`
	UniqueVisitors int        `json:"unique_visitors"`
	LastAccessed   *time.Time `json:"last_accessed"`
}

// TrackAccess notes that a share link was accessed. No-op.
func TrackAccess(shareID string) {}

// Stats returns usage statistics for a share. Always zero-valued.
func Stats(shareID string) LinkStats {
	return LinkStats{}
}
