// Package watch implements folder watching: a JSON-persisted registry
// of directory watches (one case id per watch), an fsnotify-backed
// event path with debounced create/modify/delete handling, and a
// scheduled runner that performs interval/daily diff-syncs.
package watch

import "time"

// Schedule names when a watch's scheduled diff-sync runs, independent
// of the always-on filesystem event path, which reacts to every watch
// regardless of its schedule.
type Schedule string

const (
	// OnChange watches react only to filesystem events; the scheduled
	// runner never performs a diff-sync for them.
	OnChange Schedule = "on_change"
	// Interval watches get a diff-sync every IntervalMinutes.
	Interval Schedule = "interval"
	// Daily watches get one diff-sync per day at DailyAtMinute.
	Daily Schedule = "daily"
	// Manual watches are synced only by an explicit SyncWatch call.
	Manual Schedule = "manual"
)

// defaultExtensions is the extension filter a watch gets when none is
// given explicitly, mirroring the parser registry's built-in supported
// formats minus the legacy doc, xls and ppt formats (the registry accepts
// doc and ppt but can only return an unsupported-format error for them).
var defaultExtensions = []string{"pdf", "docx", "xlsx", "txt", "eml"}

// Watch is one registered folder watch, bound to exactly one case.
type Watch struct {
	ID                string    `json:"id"`
	CaseID            string    `json:"case_id"`
	RootPath          string    `json:"root_path"`
	Schedule          Schedule  `json:"schedule"`
	IntervalMinutes   int       `json:"interval_minutes,omitempty"`
	DailyAtMinute     int       `json:"daily_at_minute,omitempty"`
	Extensions        []string  `json:"extensions,omitempty"`
	AutoRemoveDeleted bool      `json:"auto_remove_deleted"`
	CreatedAt         time.Time `json:"created_at"`
	LastSyncAt        time.Time `json:"last_sync_at,omitempty"`
}

// Due reports whether an Interval or Daily schedule's diff-sync should
// run now. OnChange and Manual watches are never due — they are driven
// by filesystem events or an explicit call, not the scheduled runner.
func (w Watch) Due(now time.Time) bool {
	switch w.Schedule {
	case Interval:
		if w.IntervalMinutes <= 0 {
			return false
		}
		return w.LastSyncAt.IsZero() || now.Sub(w.LastSyncAt) >= time.Duration(w.IntervalMinutes)*time.Minute
	case Daily:
		if w.LastSyncAt.IsZero() {
			return true
		}
		if sameLocalDay(now, w.LastSyncAt) && minuteOfDay(w.LastSyncAt) >= w.DailyAtMinute {
			return false
		}
		return minuteOfDay(now) >= w.DailyAtMinute
	default:
		return false
	}
}

func minuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

func sameLocalDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
