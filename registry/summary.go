package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"
)

// StorageSummary aggregates on-disk size across every registered case and
// the registry database itself, for the storage-summary tool operation
// (spec §6.5). Case sizes are read directly via os.Stat rather than
// opening each case's casestore.Store, so this never contends with a case
// that's concurrently in use. budgetBytes of 0 selects defaultBudgetBytes.
func (r *Registry) StorageSummary(ctx context.Context, budgetBytes int64) (StorageSummary, error) {
	if budgetBytes <= 0 {
		budgetBytes = defaultBudgetBytes
	}

	cases, err := r.ListCases(ctx)
	if err != nil {
		return StorageSummary{}, fmt.Errorf("registry: listing cases for storage summary: %w", err)
	}

	summary := StorageSummary{TotalCases: len(cases), BudgetBytes: budgetBytes}
	var mostRecentAccess time.Time
	for _, c := range cases {
		size, err := fileFamilySize(c.DBPath)
		if err != nil {
			return StorageSummary{}, fmt.Errorf("registry: sizing case %s: %w", c.ID, err)
		}
		summary.PerCase = append(summary.PerCase, CaseStorage{
			CaseID: c.ID, Name: c.Name, Bytes: size, LastAccessed: c.LastAccessed,
		})
		summary.TotalBytes += size
		if c.LastAccessed.After(mostRecentAccess) {
			mostRecentAccess = c.LastAccessed
		}
	}
	sort.Slice(summary.PerCase, func(i, j int) bool {
		return summary.PerCase[i].Bytes > summary.PerCase[j].Bytes
	})

	registryPath := r.baseDir + "/registry.db"
	regSize, err := fileFamilySize(registryPath)
	if err != nil {
		return StorageSummary{}, fmt.Errorf("registry: sizing registry database: %w", err)
	}
	summary.RegistryBytes = regSize
	summary.TotalBytes += regSize

	summary.BudgetUsedPct = float64(summary.TotalBytes) / float64(budgetBytes) * 100
	summary.Approaching = summary.BudgetUsedPct >= 70
	summary.Exceeded = summary.BudgetUsedPct >= 90
	summary.Stale = len(cases) > 0 && time.Since(mostRecentAccess) > staleAfter

	if summary.Exceeded {
		r.logger.Warn("storage budget exceeded", "used_pct", summary.BudgetUsedPct, "total_bytes", summary.TotalBytes, "budget_bytes", budgetBytes)
	} else if summary.Approaching {
		r.logger.Warn("storage budget approaching limit", "used_pct", summary.BudgetUsedPct, "total_bytes", summary.TotalBytes, "budget_bytes", budgetBytes)
	}

	return summary, nil
}

// fileFamilySize sums the main file plus its WAL and SHM siblings.
func fileFamilySize(path string) (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
