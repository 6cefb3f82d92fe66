package checkin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockChoiceRepo struct {
	counts   map[Category]int
	inserted []Choice
}

func (m *mockChoiceRepo) CountByCategory(_ context.Context, c Category) (int, error) {
	return m.counts[c], nil
}

func (m *mockChoiceRepo) InsertBatch(_ context.Context, choices []Choice) error {
	m.inserted = append(m.inserted, choices...)
	return nil
}

func (m *mockChoiceRepo) ListByCategory(_ context.Context, _ Category) ([]Choice, error) {
	return nil, nil
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeGzCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

const comuniCSV = "Codice,Descrizione,Provincia\n" +
	"416073001,Taranto,TA\n" +
	"416073002,Massafra,TA\n" +
	"403001001,Torino,\n"

func TestImportFile(t *testing.T) {
	repo := &mockChoiceRepo{counts: map[Category]int{}}
	im := NewImporter(repo, zaptest.NewLogger(t))

	path := writeCSV(t, "comuni.csv", comuniCSV)
	require.NoError(t, im.ImportFile(context.Background(), CategoryBirthComune, path))

	require.Len(t, repo.inserted, 3)
	assert.Equal(t, Choice{
		Category:    CategoryBirthComune,
		Code:        "416073001",
		Description: "Taranto - TA",
	}, repo.inserted[0])
	// Empty Provincia keeps the bare description.
	assert.Equal(t, "Torino", repo.inserted[2].Description)
}

func TestImportFile_Gzip(t *testing.T) {
	repo := &mockChoiceRepo{counts: map[Category]int{}}
	im := NewImporter(repo, zaptest.NewLogger(t))

	path := writeGzCSV(t, "comuni.csv.gz", comuniCSV)
	require.NoError(t, im.ImportFile(context.Background(), CategoryBirthComune, path))
	assert.Len(t, repo.inserted, 3)
}

func TestImportFile_SkipsExistingCategory(t *testing.T) {
	repo := &mockChoiceRepo{counts: map[Category]int{CategoryGuestType: 18}}
	im := NewImporter(repo, zaptest.NewLogger(t))

	path := writeCSV(t, "tipi.csv", "Codice,Descrizione\n16,Ospite Singolo\n")
	require.NoError(t, im.ImportFile(context.Background(), CategoryGuestType, path))
	assert.Empty(t, repo.inserted)
}

func TestImportFile_UnknownCategory(t *testing.T) {
	im := NewImporter(&mockChoiceRepo{counts: map[Category]int{}}, zaptest.NewLogger(t))

	path := writeCSV(t, "x.csv", "Codice,Descrizione\n1,A\n")
	err := im.ImportFile(context.Background(), Category("bogus"), path)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestImportFile_MissingDescriptionColumn(t *testing.T) {
	repo := &mockChoiceRepo{counts: map[Category]int{}}
	im := NewImporter(repo, zaptest.NewLogger(t))

	path := writeCSV(t, "bad.csv", "Codice,Nome\n1,A\n")
	err := im.ImportFile(context.Background(), CategoryDocumentType, path)
	assert.Error(t, err)
}

func TestImportFile_SkipsBlankRows(t *testing.T) {
	repo := &mockChoiceRepo{counts: map[Category]int{}}
	im := NewImporter(repo, zaptest.NewLogger(t))

	path := writeCSV(t, "blank.csv", "Codice,Descrizione\n1,Passaporto\n2,\n")
	require.NoError(t, im.ImportFile(context.Background(), CategoryDocumentType, path))
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "Passaporto", repo.inserted[0].Description)
}
