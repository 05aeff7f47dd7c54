// Package configsnap fetches and validates the JSON configuration patch that
// drives a flow's runtime behavior, wrapping any ConfigProvider with a
// last-known-good fallback so a bad deploy degrades to stale-but-valid
// configuration instead of an outage.
package configsnap

import "context"

// SnapshotSource records where a Snapshot's content originated.
type SnapshotSource string

const (
	SourceStatic SnapshotSource = "static"
	SourceLKG    SnapshotSource = "lkg"
)

// LKGEvidence is populated on a Snapshot returned by the LKG wrapper when it
// fell back to the cached good version instead of an invalid candidate.
type LKGEvidence struct {
	Fallback               bool
	LastGoodConfigVersion  uint64
	CandidateConfigVersion uint64
}

// SnapshotMeta carries provenance alongside a Snapshot's payload.
type SnapshotMeta struct {
	Source       SnapshotSource
	TimestampUTC int64
	LKG          *LKGEvidence
}

// Snapshot is one fetched configuration version. Two snapshots with the same
// ConfigVersion are treated as identical; providers may use this for caching.
type Snapshot struct {
	ConfigVersion uint64
	PatchJSON     string
	Meta          SnapshotMeta
}

// ConfigProvider fetches the current configuration snapshot for a flow. A
// provider is free to return the same Snapshot repeatedly (e.g. a static
// file watcher that only re-reads on mtime change).
type ConfigProvider interface {
	GetSnapshot(ctx context.Context, flowName string) (Snapshot, error)
}

// StaticConfigProvider always returns the same fixed snapshot, useful for
// tests and for flows whose configuration never changes post-deploy.
type StaticConfigProvider struct {
	snapshot Snapshot
}

// NewStaticConfigProvider wraps a fixed patch document as configVersion 1,
// timestamped at construction time.
func NewStaticConfigProvider(patchJSON string, nowUTC int64) *StaticConfigProvider {
	return &StaticConfigProvider{
		snapshot: Snapshot{
			ConfigVersion: 1,
			PatchJSON:     patchJSON,
			Meta:          SnapshotMeta{Source: SourceStatic, TimestampUTC: nowUTC},
		},
	}
}

func (p *StaticConfigProvider) GetSnapshot(ctx context.Context, flowName string) (Snapshot, error) {
	return p.snapshot, nil
}

var _ ConfigProvider = (*StaticConfigProvider)(nil)
