package knowledge_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/couchcryptid/crop-advisory-service/internal/adapter/knowledge"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*knowledge.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return knowledge.NewStore(dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func paddyKnowledge(t *testing.T) domain.Knowledge {
	t.Helper()
	k, err := domain.DefaultKnowledge(domain.DefaultCalendar(), domain.DefaultRiskModel(), "Paddy")
	require.NoError(t, err)
	return k
}

func TestPath_UsesCanonicalLowercaseName(t *testing.T) {
	s, dir := newStore(t)
	path, err := s.Path("Paddy (Rice)")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "knowledge_core_paddy.json"), path)
}

func TestPath_RejectsNamesLeavingDir(t *testing.T) {
	s, _ := newStore(t)

	for _, crop := range []string{"", "../secret", "..", `..\secret`, "a/b", "x/../../secret"} {
		_, err := s.Path(crop)
		require.ErrorIs(t, err, domain.ErrUnknownCrop, "crop %q", crop)

		_, err = s.Get(context.Background(), crop)
		require.ErrorIs(t, err, domain.ErrNotFound, "crop %q", crop)
	}
	require.ErrorIs(t, s.Put(context.Background(), "../escape", paddyKnowledge(t)), domain.ErrUnknownCrop)
}

func TestGet_MissingFile(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Get(context.Background(), "Paddy")

	var missing *domain.KnowledgeMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Paddy", missing.Crop)
}

func TestGet_RecordWithoutPhasesIsMissing(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "knowledge_core_paddy.json"), []byte(`{"crop_info":{"name":"Paddy"},"lifecycle_phases":[]}`), 0o644))

	_, err := s.Get(context.Background(), "Paddy")

	assert.ErrorIs(t, err, domain.ErrKnowledgeMissing)
}

func TestGet_MalformedFile(t *testing.T) {
	s, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "knowledge_core_paddy.json"), []byte(`{not json`), 0o644))

	_, err := s.Get(context.Background(), "Paddy")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrKnowledgeMissing)
	assert.Contains(t, err.Error(), "decode knowledge")
}

func TestPutThenGet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	want := paddyKnowledge(t)

	require.NoError(t, s.Put(ctx, "Paddy", want))
	got, err := s.Get(ctx, "paddy")
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("knowledge mismatch (-want +got):\n%s", diff)
	}
}

func TestPut_RejectsInvalidRecord(t *testing.T) {
	s, _ := newStore(t)
	err := s.Put(context.Background(), "Paddy", domain.Knowledge{})
	assert.Error(t, err)
}

func TestAddProtocol_VisibleToNextRead(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "Paddy", paddyKnowledge(t)))

	p := domain.DiseaseProtocol{Name: "Sheath Blight", Risk: "High"}
	require.NoError(t, s.AddProtocol(ctx, "Paddy", "d_1718875800", p))

	k, err := s.Get(ctx, "Paddy")
	require.NoError(t, err)
	assert.Equal(t, p, k.DiseaseProtocols["d_1718875800"])
	assert.Contains(t, k.DiseaseProtocols, "rice_blast")

	id, _, ok := k.MatchProtocol("sheath blight")
	require.True(t, ok)
	assert.Equal(t, "d_1718875800", id)
}

func TestAddProtocol_ExistingIDKept(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "Paddy", paddyKnowledge(t)))

	require.NoError(t, s.AddProtocol(ctx, "Paddy", "d_1", domain.DiseaseProtocol{Name: "Leaf Spot"}))
	err := s.AddProtocol(ctx, "Paddy", "d_1", domain.DiseaseProtocol{Name: "Stem Borer"})
	require.ErrorIs(t, err, domain.ErrProtocolExists)

	k, err := s.Get(ctx, "Paddy")
	require.NoError(t, err)
	assert.Equal(t, "Leaf Spot", k.DiseaseProtocols["d_1"].Name)
}

func TestAddProtocol_MissingRecord(t *testing.T) {
	s, _ := newStore(t)
	err := s.AddProtocol(context.Background(), "Paddy", "d_1", domain.DiseaseProtocol{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrKnowledgeMissing)
}

func TestAddProtocol_ConcurrentAddsAllKept(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "Paddy", paddyKnowledge(t)))

	ids := []string{"d_1", "d_2", "d_3", "d_4", "d_5", "d_6", "d_7", "d_8"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddProtocol(ctx, "Paddy", id, domain.DiseaseProtocol{Name: id}))
		}()
	}
	wg.Wait()

	k, err := s.Get(ctx, "Paddy")
	require.NoError(t, err)
	for _, id := range ids {
		assert.Contains(t, k.DiseaseProtocols, id)
	}
}

func TestBootstrap_WritesMissingCropsOnly(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	calendar := domain.DefaultCalendar()

	custom := paddyKnowledge(t)
	custom.CropInfo.Name = "Paddy (custom)"
	require.NoError(t, s.Put(ctx, "Paddy", custom))

	written, err := s.Bootstrap(ctx, calendar, domain.DefaultRiskModel())
	require.NoError(t, err)

	assert.Len(t, written, len(calendar)-1)
	assert.NotContains(t, written, "Paddy")
	for _, crop := range written {
		path, err := s.Path(crop)
		require.NoError(t, err)
		assert.FileExists(t, path)
	}

	k, err := s.Get(ctx, "Paddy")
	require.NoError(t, err)
	assert.Equal(t, "Paddy (custom)", k.CropInfo.Name)

	again, err := s.Bootstrap(ctx, calendar, domain.DefaultRiskModel())
	require.NoError(t, err)
	assert.Empty(t, again)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(calendar))
}
