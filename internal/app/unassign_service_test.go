package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/bidsfix/internal/core/pairing"
	"github.com/example/bidsfix/internal/ports/primary"
)

func newTestUnassignService(t *testing.T, store *mockSidecarStore) *UnassignServiceImpl {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewUnassignService("/data", store, NewEffectExecutor(store, logger), "IntendedFor", ".json", logger)
}

func TestUnassignSessions_RemovesLinkage(t *testing.T) {
	store := newMockSidecarStore()
	store.put("/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-AP_run-1_epi.json", `{"IntendedFor": ["ses-1/func/a.nii.gz"], "TotalReadoutTime": 0.05}`)
	store.put("/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-PA_run-1_epi.json", `{"IntendedFor": "ses-1/func/a.nii.gz"}`)
	store.put("/data/sub-01/ses-1/fmap/extra/sub-01_ses-1_dir-AP_run-9_epi.json", `{"EchoTime": 0.08}`)
	store.put("/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-AP_run-1_epi.nii.gz", "binary")
	store.put("/data/sub-01/ses-2/fmap/sub-01_ses-2_dir-AP_run-1_epi.json", `{"IntendedFor": ["ses-2/func/b.nii.gz"]}`)
	svc := newTestUnassignService(t, store)

	resp, err := svc.UnassignSessions(context.Background(), primary.UnassignRequest{
		Sessions: []primary.SessionRef{{Subject: "01", Session: "1"}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, 3, resp.Sessions[0].Sidecars)
	assert.Equal(t, 2, resp.Sessions[0].Removed)
	assert.Equal(t, 3, store.totalSaves(), "sidecars without the field are rewritten too")

	assert.Equal(t, "{\n  \"TotalReadoutTime\": 0.05\n}", store.get("/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-AP_run-1_epi.json"))
	assert.Equal(t, "{}", store.get("/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-PA_run-1_epi.json"))
	assert.Equal(t, "binary", store.get("/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-AP_run-1_epi.nii.gz"))
	assert.Contains(t, store.get("/data/sub-01/ses-2/fmap/sub-01_ses-2_dir-AP_run-1_epi.json"), "IntendedFor",
		"unlisted sessions must not be touched")
}

func TestUnassignSessions_NoLinkageIsNoOp(t *testing.T) {
	store := newMockSidecarStore()
	path := "/data/sub-01/ses-1/fmap/sub-01_ses-1_dir-AP_run-1_epi.json"
	store.put(path, "{\n  \"EchoTime\": 0.08\n}")
	svc := newTestUnassignService(t, store)

	resp, err := svc.UnassignSessions(context.Background(), primary.UnassignRequest{
		Sessions: []primary.SessionRef{{Subject: "01", Session: "1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Sessions[0].Removed)
	assert.Equal(t, "{\n  \"EchoTime\": 0.08\n}", store.get(path))
}

func TestUnassignSessions_DryRun(t *testing.T) {
	store := newMockSidecarStore()
	store.put("/data/sub-01/ses-1/fmap/a_epi.json", `{"IntendedFor": ["x"]}`)
	store.put("/data/sub-01/ses-1/fmap/b_epi.json", `{}`)
	svc := newTestUnassignService(t, store)

	resp, err := svc.UnassignSessions(context.Background(), primary.UnassignRequest{
		Sessions: []primary.SessionRef{{Subject: "01", Session: "1"}},
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Sessions[0].Sidecars)
	assert.Equal(t, 1, resp.Sessions[0].Removed)
	assert.Zero(t, store.totalSaves())
}

func TestUnassignSessions_MissingFmapDir(t *testing.T) {
	svc := newTestUnassignService(t, newMockSidecarStore())

	resp, err := svc.UnassignSessions(context.Background(), primary.UnassignRequest{
		Sessions: []primary.SessionRef{{Subject: "01", Session: "1"}},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Sessions[0].Sidecars)
}

func TestUnassignSessions_InvalidSession(t *testing.T) {
	store := newMockSidecarStore()
	svc := newTestUnassignService(t, store)

	resp, err := svc.UnassignSessions(context.Background(), primary.UnassignRequest{
		Sessions: []primary.SessionRef{{Subject: "01", Session: "1"}, {Subject: "..", Session: "1"}},
	})
	require.Error(t, err)
	assert.Len(t, resp.Sessions, 1)
}

func TestUnassignSessions_UndoesAssign(t *testing.T) {
	index, store := fixture(hcpSession("01", "1"))
	original := store.get(fmapPath("01", "1", "1", "AP"))
	logger := zaptest.NewLogger(t)
	executor := NewEffectExecutor(store, logger)

	_, err := NewAssignService(index, executor, pairing.DefaultConventions(), logger).
		AssignSessions(context.Background(), primary.AssignRequest{})
	require.NoError(t, err)
	require.NotEqual(t, original, store.get(fmapPath("01", "1", "1", "AP")))

	_, err = NewUnassignService("/data", store, executor, "IntendedFor", ".json", logger).
		UnassignSessions(context.Background(), primary.UnassignRequest{
			Sessions: []primary.SessionRef{{Subject: "01", Session: "1"}},
		})
	require.NoError(t, err)

	for _, run := range []string{"1", "2", "3"} {
		assert.Nil(t, intendedFor(t, store, fmapPath("01", "1", run, "AP")))
		assert.Nil(t, intendedFor(t, store, fmapPath("01", "1", run, "PA")))
	}
}
