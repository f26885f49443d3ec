package app

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/example/bidsfix/internal/ports/secondary"
	"github.com/example/bidsfix/internal/sidecar"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure mocks implement the interfaces
var (
	_ secondary.DatasetIndex   = (*mockDatasetIndex)(nil)
	_ secondary.DatasetScanner = (*mockDatasetIndex)(nil)
	_ secondary.IndexStore     = (*mockIndexStore)(nil)
	_ secondary.SidecarStore   = (*mockSidecarStore)(nil)
)

// mockDatasetIndex serves a fixed set of records.
type mockDatasetIndex struct {
	root     string
	records  []*secondary.AcquisitionRecord
	queryErr error
}

func newMockDatasetIndex(records ...*secondary.AcquisitionRecord) *mockDatasetIndex {
	return &mockDatasetIndex{root: "/data", records: records}
}

func (m *mockDatasetIndex) Query(ctx context.Context, filter secondary.AcquisitionFilter) ([]*secondary.AcquisitionRecord, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []*secondary.AcquisitionRecord
	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

func (m *mockDatasetIndex) Root() string {
	return m.root
}

func (m *mockDatasetIndex) Records(ctx context.Context) ([]*secondary.AcquisitionRecord, error) {
	return m.Query(ctx, secondary.AcquisitionFilter{})
}

// mockIndexStore records what was stored.
type mockIndexStore struct {
	mockDatasetIndex
	replaceErr error
}

func (m *mockIndexStore) Replace(ctx context.Context, root string, records []*secondary.AcquisitionRecord) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.root = root
	m.records = records
	return nil
}

func (m *mockIndexStore) Meta(ctx context.Context) (*secondary.IndexMeta, error) {
	return &secondary.IndexMeta{Root: m.root, RecordCount: len(m.records)}, nil
}

// mockSidecarStore keeps sidecar files in memory. Safe for concurrent use.
type mockSidecarStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saves   map[string]int
	saveErr error
}

func newMockSidecarStore() *mockSidecarStore {
	return &mockSidecarStore{
		files: make(map[string][]byte),
		saves: make(map[string]int),
	}
}

func (m *mockSidecarStore) put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}

func (m *mockSidecarStore) get(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[path])
}

func (m *mockSidecarStore) totalSaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.saves {
		n += c
	}
	return n
}

func (m *mockSidecarStore) Load(ctx context.Context, path string) (sidecar.Document, error) {
	m.mu.Lock()
	data, ok := m.files[path]
	m.mu.Unlock()
	if !ok {
		return nil, fs.ErrNotExist
	}
	return sidecar.Decode(data)
}

func (m *mockSidecarStore) Save(ctx context.Context, path string, doc sidecar.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	m.saves[path]++
	return nil
}

func (m *mockSidecarStore) List(ctx context.Context, dir, ext string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.files {
		if strings.HasPrefix(p, dir+"/") && strings.HasSuffix(p, ext) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

var errBoom = errors.New("boom")

// ============================================================================
// Fixtures
// ============================================================================

// session builds the records of one HCP-style session and seeds the store
// with a sidecar for every field-map json.
type session struct {
	sub, ses string
	records  []*secondary.AcquisitionRecord
}

func newSession(sub, ses string) *session {
	return &session{sub: sub, ses: ses}
}

func (s *session) add(datatype, task, run, dir, suffix, ext string) *session {
	name := "sub-" + s.sub + "_ses-" + s.ses
	if task != "" {
		name += "_task-" + task
	}
	if dir != "" {
		name += "_dir-" + dir
	}
	if run != "" {
		name += "_run-" + run
	}
	name += "_" + suffix + ext
	rel := "sub-" + s.sub + "/ses-" + s.ses + "/" + datatype + "/" + name
	s.records = append(s.records, &secondary.AcquisitionRecord{
		Subject:   s.sub,
		Session:   s.ses,
		Datatype:  datatype,
		Task:      task,
		Run:       run,
		Direction: dir,
		Suffix:    suffix,
		Extension: ext,
		RelPath:   rel,
		Path:      "/data/" + rel,
	})
	return s
}

func (s *session) bold(task, run, dir string) *session {
	return s.add("func", task, run, dir, "bold", ".nii.gz")
}

func (s *session) fmapPair(run string) *session {
	return s.add("fmap", "", run, "AP", "epi", ".json").add("fmap", "", run, "PA", "epi", ".json")
}

// fixture builds an index and a store from sessions.
func fixture(sessions ...*session) (*mockDatasetIndex, *mockSidecarStore) {
	index := newMockDatasetIndex()
	store := newMockSidecarStore()
	for _, s := range sessions {
		index.records = append(index.records, s.records...)
		for _, r := range s.records {
			if r.Datatype == "fmap" && r.Extension == ".json" {
				store.put(r.Path, `{"PhaseEncodingDirection": "j-", "TotalReadoutTime": 0.0513}`)
			}
		}
	}
	return index, store
}

func fmapPath(sub, ses, run, dir string) string {
	name := "sub-" + sub + "_ses-" + ses + "_dir-" + dir
	if run != "" {
		name += "_run-" + run
	}
	return "/data/sub-" + sub + "/ses-" + ses + "/fmap/" + name + "_epi.json"
}
