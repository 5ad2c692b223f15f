package registry

import "time"

// Case is a single legal matter tracked by the registry. Every case owns
// exactly one casestore database file, giving it physical isolation from
// every other case on disk.
type Case struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DBPath        string    `json:"db_path"`
	SchemaVersion int       `json:"schema_version"`
	Status        string    `json:"status"` // active, archived
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastAccessed  time.Time `json:"last_accessed"`
}

// StorageSummary is the registry-wide rollup surfaced by the
// storage-summary tool operation (spec §6.5): aggregate disk usage,
// per-case breakdown sorted by bytes descending, a staleness flag, and
// budget-usage percentage against BudgetBytes.
type StorageSummary struct {
	TotalCases      int           `json:"total_cases"`
	TotalBytes      int64         `json:"total_bytes"`
	PerCase         []CaseStorage `json:"per_case"`
	RegistryBytes   int64         `json:"registry_bytes"`
	BudgetBytes     int64         `json:"budget_bytes"`
	BudgetUsedPct   float64       `json:"budget_used_pct"`
	Approaching     bool          `json:"approaching"` // budget usage >= 70%
	Exceeded        bool          `json:"exceeded"`     // budget usage >= 90%
	Stale           bool          `json:"stale"`        // no case touched in > staleAfter
}

// CaseStorage is one case's contribution to the storage summary.
type CaseStorage struct {
	CaseID       string    `json:"case_id"`
	Name         string    `json:"name"`
	Bytes        int64     `json:"bytes"`
	LastAccessed time.Time `json:"last_accessed"`
}

// defaultBudgetBytes is the fallback storage budget (10 GiB) used when the
// caller does not configure one explicitly, e.g. via config.toml.
const defaultBudgetBytes int64 = 10 << 30

// staleAfter is how long since any case's last access before the registry
// is considered stale, per spec §6.5.
const staleAfter = 180 * 24 * time.Hour
