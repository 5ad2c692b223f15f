//go:build cgo

package toolsurface

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casetrack/casetrack/registry"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	reg, err := registry.Open(t.TempDir(), nil)
	require.NoError(t, err)
	sfc := New(reg, Config{DenseDim: 4}, nil)
	t.Cleanup(func() { sfc.Close() })
	return sfc
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDispatchUnknownToolIsError(t *testing.T) {
	sfc := newTestSurface(t)
	res := sfc.Dispatch(context.Background(), "not_a_real_tool", nil)
	require.True(t, res.IsError)
}

func TestDispatchRejectsMissingRequiredArgument(t *testing.T) {
	sfc := newTestSurface(t)
	res := sfc.Dispatch(context.Background(), "create_case", mustJSON(t, map[string]interface{}{}))
	require.True(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "name")
}

func TestCreateCaseBecomesActiveAndListable(t *testing.T) {
	sfc := newTestSurface(t)
	ctx := context.Background()

	res := sfc.Dispatch(ctx, "create_case", mustJSON(t, map[string]interface{}{"name": "Acme v. Widgets"}))
	require.False(t, res.IsError)

	active := sfc.Dispatch(ctx, "get_active_case", nil)
	require.False(t, active.IsError)
	require.Contains(t, active.Content[0].Text, "Acme v. Widgets")

	list := sfc.Dispatch(ctx, "list_cases", nil)
	require.False(t, list.IsError)
	require.Contains(t, list.Content[0].Text, "Acme v. Widgets")
}

func TestSearchWithNoActiveCaseIsError(t *testing.T) {
	sfc := newTestSurface(t)
	res := sfc.Dispatch(context.Background(), "search", mustJSON(t, map[string]interface{}{"query": "breach"}))
	require.True(t, res.IsError)
}

func TestIngestThenSearchAndGetDocument(t *testing.T) {
	sfc := newTestSurface(t)
	ctx := context.Background()

	sfc.Dispatch(ctx, "create_case", mustJSON(t, map[string]interface{}{"name": "Acme v. Widgets"}))

	path := filepath.Join(t.TempDir(), "complaint.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"Plaintiff Acme Corp. brings this action for breach of contract against Widgets Inc. "+
			"See Brown v. Board of Education, 347 U.S. 483 (1954)."), 0644))

	ingestRes := sfc.Dispatch(ctx, "ingest_document", mustJSON(t, map[string]interface{}{"path": path}))
	require.False(t, ingestRes.IsError, ingestRes.Content[0].Text)

	var decoded struct {
		DocumentID string `json:"DocumentID"`
		ChunkCount int    `json:"ChunkCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(ingestRes.Content[0].Text), &decoded))
	require.NotEmpty(t, decoded.DocumentID)

	getDoc := sfc.Dispatch(ctx, "get_document", mustJSON(t, map[string]interface{}{"document_id": decoded.DocumentID}))
	require.False(t, getDoc.IsError)

	listDocs := sfc.Dispatch(ctx, "list_documents", nil)
	require.False(t, listDocs.IsError)
	require.Contains(t, listDocs.Content[0].Text, decoded.DocumentID)

	searchRes := sfc.Dispatch(ctx, "search", mustJSON(t, map[string]interface{}{"query": "breach of contract"}))
	require.False(t, searchRes.IsError)

	summary := sfc.Dispatch(ctx, "get_case_summary", nil)
	require.False(t, summary.IsError)

	del := sfc.Dispatch(ctx, "delete_document", mustJSON(t, map[string]interface{}{"document_id": decoded.DocumentID}))
	require.False(t, del.IsError)

	getAfterDelete := sfc.Dispatch(ctx, "get_document", mustJSON(t, map[string]interface{}{"document_id": decoded.DocumentID}))
	require.True(t, getAfterDelete.IsError)
}

func TestStorageSummaryToolReportsBudgetUsage(t *testing.T) {
	sfc := newTestSurface(t)
	ctx := context.Background()
	sfc.Dispatch(ctx, "create_case", mustJSON(t, map[string]interface{}{"name": "Acme v. Widgets"}))

	res := sfc.Dispatch(ctx, "get_storage_summary", mustJSON(t, map[string]interface{}{"budget_bytes": 1}))
	require.False(t, res.IsError)
	require.Contains(t, res.Content[0].Text, "\"exceeded\": true")
}

func TestExportThenImportCaseTool(t *testing.T) {
	sfc := newTestSurface(t)
	ctx := context.Background()

	createRes := sfc.Dispatch(ctx, "create_case", mustJSON(t, map[string]interface{}{"name": "Acme v. Widgets"}))
	var c struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(createRes.Content[0].Text), &c))

	archivePath := filepath.Join(t.TempDir(), "acme.ctcase")
	exportRes := sfc.Dispatch(ctx, "export_case", mustJSON(t, map[string]interface{}{
		"case_id": c.ID, "destination_path": archivePath,
	}))
	require.False(t, exportRes.IsError, exportRes.Content[0].Text)
	require.FileExists(t, archivePath)

	importRes := sfc.Dispatch(ctx, "import_case", mustJSON(t, map[string]interface{}{"archive_path": archivePath}))
	require.False(t, importRes.IsError, importRes.Content[0].Text)

	list := sfc.Dispatch(ctx, "list_cases", nil)
	require.False(t, list.IsError)
}

func TestAddWatchWithoutStartWatchingIsError(t *testing.T) {
	sfc := newTestSurface(t)
	ctx := context.Background()
	sfc.Dispatch(ctx, "create_case", mustJSON(t, map[string]interface{}{"name": "Acme v. Widgets"}))

	res := sfc.Dispatch(ctx, "add_watch", mustJSON(t, map[string]interface{}{"root_path": t.TempDir()}))
	require.True(t, res.IsError)
}

func TestAddAndListWatch(t *testing.T) {
	sfc := newTestSurface(t)
	ctx := context.Background()
	sfc.Dispatch(ctx, "create_case", mustJSON(t, map[string]interface{}{"name": "Acme v. Widgets"}))

	require.NoError(t, sfc.StartWatching(ctx, filepath.Join(sfc.reg.BaseDir(), "watches.json")))

	addRes := sfc.Dispatch(ctx, "add_watch", mustJSON(t, map[string]interface{}{"root_path": t.TempDir()}))
	require.False(t, addRes.IsError, addRes.Content[0].Text)

	listRes := sfc.Dispatch(ctx, "list_watches", nil)
	require.False(t, listRes.IsError)
	require.Contains(t, listRes.Content[0].Text, "root_path")
}
