package toolsurface

import (
	"fmt"
	"time"

	"github.com/casetrack/casetrack/watch"
)

func init() {
	register(
		ToolDef{
			Name:        "add_watch",
			Description: "Register a folder watch bound to a case: new or changed supported files are ingested automatically, either on every filesystem event or on a schedule.",
			Schema: Schema{
				Required: []string{"root_path"},
				Allowed: []string{"case_id", "root_path", "schedule", "interval_minutes", "daily_at_minute",
					"extensions", "auto_remove_deleted"},
			},
			Handler: handleAddWatch,
		},
		ToolDef{
			Name:        "remove_watch",
			Description: "Remove a registered folder watch.",
			Schema:      Schema{Required: []string{"watch_id"}, Allowed: []string{"watch_id"}},
			Handler:     handleRemoveWatch,
		},
		ToolDef{
			Name:        "list_watches",
			Description: "List every registered folder watch.",
			Schema:      Schema{Allowed: nil},
			Handler:     handleListWatches,
		},
		ToolDef{
			Name:        "sync_watch",
			Description: "Run an immediate diff-sync for one watch: ingest new and changed files, report orphaned documents whose file is gone.",
			Schema:      Schema{Required: []string{"watch_id"}, Allowed: []string{"watch_id"}},
			Handler:     handleSyncWatch,
		},
	)
}

func handleAddWatch(ic invocationContext, fields map[string]interface{}) Result {
	if ic.sfc.watches == nil {
		return errorResult(tagged(KindInvalidArgument, "folder watching is not enabled for this installation"))
	}
	caseID := stringArg(fields, "case_id")
	if caseID == "" {
		id, err := ic.sfc.reg.ActiveCaseID(ic.ctx)
		if err != nil {
			return errorResult(mapError(err))
		}
		caseID = id
	}

	schedule := watch.Schedule(stringArg(fields, "schedule"))
	if schedule == "" {
		schedule = watch.OnChange
	}

	w, err := ic.sfc.watches.AddWatch(watch.Watch{
		CaseID:            caseID,
		RootPath:          stringArg(fields, "root_path"),
		Schedule:          schedule,
		IntervalMinutes:   intArg(fields, "interval_minutes"),
		DailyAtMinute:     intArg(fields, "daily_at_minute"),
		Extensions:        stringSliceArg(fields, "extensions"),
		AutoRemoveDeleted: boolArg(fields, "auto_remove_deleted"),
		CreatedAt:         time.Now(),
	})
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(w)
}

func handleRemoveWatch(ic invocationContext, fields map[string]interface{}) Result {
	if ic.sfc.watches == nil {
		return errorResult(tagged(KindInvalidArgument, "folder watching is not enabled for this installation"))
	}
	id := stringArg(fields, "watch_id")
	if err := ic.sfc.watches.RemoveWatch(id); err != nil {
		return errorResult(mapError(err))
	}
	return textResult("watch " + id + " removed")
}

func handleListWatches(ic invocationContext, fields map[string]interface{}) Result {
	if ic.sfc.watches == nil {
		return jsonResult([]watch.Watch{})
	}
	return jsonResult(ic.sfc.watches.ListWatches())
}

func handleSyncWatch(ic invocationContext, fields map[string]interface{}) Result {
	if ic.sfc.watches == nil {
		return errorResult(tagged(KindInvalidArgument, "folder watching is not enabled for this installation"))
	}
	res, err := ic.sfc.watches.SyncWatch(ic.ctx, stringArg(fields, "watch_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	if len(res.Errors) > 0 {
		return errorResult(tagged(KindStorageWriteFailed, fmt.Sprintf("%d file(s) failed to sync: %v", len(res.Errors), res.Errors[0])))
	}
	return jsonResult(res)
}
