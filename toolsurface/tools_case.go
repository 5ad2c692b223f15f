package toolsurface

func init() {
	register(
		ToolDef{
			Name:        "create_case",
			Description: "Create a new case and make it the active case.",
			Schema:      Schema{Required: []string{"name"}, Allowed: []string{"name", "description"}},
			Handler:     handleCreateCase,
		},
		ToolDef{
			Name:        "list_cases",
			Description: "List every known case, most recently accessed first.",
			Schema:      Schema{Allowed: nil},
			Handler:     handleListCases,
		},
		ToolDef{
			Name:        "get_case",
			Description: "Fetch a single case's registry record by id.",
			Schema:      Schema{Required: []string{"case_id"}, Allowed: []string{"case_id"}},
			Handler:     handleGetCase,
		},
		ToolDef{
			Name:        "set_active_case",
			Description: "Mark a case as the active case for subsequent operations that omit case_id.",
			Schema:      Schema{Required: []string{"case_id"}, Allowed: []string{"case_id"}},
			Handler:     handleSetActiveCase,
		},
		ToolDef{
			Name:        "get_active_case",
			Description: "Return the currently active case, if any.",
			Schema:      Schema{Allowed: nil},
			Handler:     handleGetActiveCase,
		},
		ToolDef{
			Name:        "rename_case",
			Description: "Update a case's display name and/or description.",
			Schema:      Schema{Required: []string{"case_id", "name"}, Allowed: []string{"case_id", "name", "description"}},
			Handler:     handleRenameCase,
		},
		ToolDef{
			Name:        "archive_case",
			Description: "Mark a case archived and compact its database for long-term storage.",
			Schema:      Schema{Required: []string{"case_id"}, Allowed: []string{"case_id"}},
			Handler:     handleArchiveCase,
		},
		ToolDef{
			Name:        "delete_case",
			Description: "Permanently remove a case's registry entry and on-disk database.",
			Schema:      Schema{Required: []string{"case_id"}, Allowed: []string{"case_id"}},
			Handler:     handleDeleteCase,
		},
		ToolDef{
			Name:        "get_storage_summary",
			Description: "Report aggregate and per-case disk usage, staleness, and budget-usage percentage.",
			Schema:      Schema{Allowed: []string{"budget_bytes"}},
			Handler:     handleStorageSummary,
		},
		ToolDef{
			Name:        "export_case",
			Description: "Export a case to a .ctcase archive at the given destination path.",
			Schema:      Schema{Required: []string{"case_id", "destination_path"}, Allowed: []string{"case_id", "destination_path"}},
			Handler:     handleExportCase,
		},
		ToolDef{
			Name:        "import_case",
			Description: "Import a .ctcase archive as a new case with a freshly assigned id.",
			Schema:      Schema{Required: []string{"archive_path"}, Allowed: []string{"archive_path"}},
			Handler:     handleImportCase,
		},
	)
}

func handleCreateCase(ic invocationContext, fields map[string]interface{}) Result {
	name := stringArg(fields, "name")
	description := stringArg(fields, "description")
	c, err := ic.sfc.reg.CreateCase(ic.ctx, name, description, ic.sfc.cfg.DenseDim)
	if err != nil {
		return errorResult(mapError(err))
	}
	if err := ic.sfc.reg.SetActiveCase(ic.ctx, c.ID); err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(c)
}

func handleListCases(ic invocationContext, fields map[string]interface{}) Result {
	cases, err := ic.sfc.reg.ListCases(ic.ctx)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(cases)
}

func handleGetCase(ic invocationContext, fields map[string]interface{}) Result {
	c, err := ic.sfc.reg.GetCase(ic.ctx, stringArg(fields, "case_id"))
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(c)
}

func handleSetActiveCase(ic invocationContext, fields map[string]interface{}) Result {
	id := stringArg(fields, "case_id")
	if err := ic.sfc.reg.SetActiveCase(ic.ctx, id); err != nil {
		return errorResult(mapError(err))
	}
	return textResult("active case set to " + id)
}

func handleGetActiveCase(ic invocationContext, fields map[string]interface{}) Result {
	id, err := ic.sfc.reg.ActiveCaseID(ic.ctx)
	if err != nil {
		return errorResult(mapError(err))
	}
	c, err := ic.sfc.reg.GetCase(ic.ctx, id)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(c)
}

func handleRenameCase(ic invocationContext, fields map[string]interface{}) Result {
	id := stringArg(fields, "case_id")
	name := stringArg(fields, "name")
	description := stringArg(fields, "description")
	if err := ic.sfc.reg.RenameCase(ic.ctx, id, name, description); err != nil {
		return errorResult(mapError(err))
	}
	c, err := ic.sfc.reg.GetCase(ic.ctx, id)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(c)
}

func handleArchiveCase(ic invocationContext, fields map[string]interface{}) Result {
	id := stringArg(fields, "case_id")
	if err := ic.sfc.reg.ArchiveCase(ic.ctx, id, ic.sfc.cfg.DenseDim); err != nil {
		return errorResult(mapError(err))
	}
	ic.sfc.forgetCase(id)
	return textResult("case " + id + " archived")
}

func handleDeleteCase(ic invocationContext, fields map[string]interface{}) Result {
	id := stringArg(fields, "case_id")
	ic.sfc.forgetCase(id)
	if err := ic.sfc.reg.DeleteCase(ic.ctx, id); err != nil {
		return errorResult(mapError(err))
	}
	return textResult("case " + id + " deleted")
}

func handleStorageSummary(ic invocationContext, fields map[string]interface{}) Result {
	budget := int64(intArg(fields, "budget_bytes"))
	summary, err := ic.sfc.reg.StorageSummary(ic.ctx, budget)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(summary)
}

func handleExportCase(ic invocationContext, fields map[string]interface{}) Result {
	id := stringArg(fields, "case_id")
	dest := stringArg(fields, "destination_path")
	if err := ic.sfc.reg.ExportCase(ic.ctx, id, dest); err != nil {
		return errorResult(mapError(err))
	}
	return textResult("case " + id + " exported to " + dest)
}

func handleImportCase(ic invocationContext, fields map[string]interface{}) Result {
	archivePath := stringArg(fields, "archive_path")
	c, err := ic.sfc.reg.ImportCase(ic.ctx, archivePath)
	if err != nil {
		return errorResult(mapError(err))
	}
	return jsonResult(c)
}
