package datastore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpal/plantpal-go/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data", "db.json"))
	require.NoError(t, err)
	return store
}

func TestReadMissingFileYieldsEmptyDocument(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	doc, err := store.Read()
	require.NoError(t, err)
	assert.Empty(t, doc.Plants)
	assert.Empty(t, doc.Flowers)
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	area := 0.42
	in := &model.Document{
		Plants: []*model.Subject{{
			ID:       "p1",
			Species:  "Monstera deliciosa",
			Nickname: "Fernando",
			Images:   []model.Image{{ID: "img1", Filename: "a.jpg", Area: &area}},
		}},
		Flowers: []*model.Subject{{ID: "f1", Species: "Rosa gallica"}},
	}
	require.NoError(t, store.Write(in))

	out, err := store.Read()
	require.NoError(t, err)
	require.Len(t, out.Plants, 1)
	require.Len(t, out.Flowers, 1)
	assert.Equal(t, "Fernando", out.Plants[0].Nickname)
	require.NotNil(t, out.Plants[0].Images[0].Area)
	assert.InDelta(t, 0.42, *out.Plants[0].Images[0].Area, 1e-9)
}

func TestReadReturnsIndependentSnapshots(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.Write(&model.Document{
		Plants: []*model.Subject{{ID: "p1", Nickname: "original"}},
	}))

	first, err := store.Read()
	require.NoError(t, err)
	first.Plants[0].Nickname = "mutated"

	second, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "original", second.Plants[0].Nickname)
}

func TestReadCorruptFile(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0o644))

	_, err := store.Read()
	assert.Error(t, err)
}

func TestUpdatePersistsMutation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.Write(&model.Document{
		Plants: []*model.Subject{{ID: "p1", Species: "Unknown"}},
	}))

	err := store.Update("p1", func(doc *model.Document) error {
		subject, _ := doc.FindSubject("p1")
		require.NotNil(t, subject)
		subject.Species = "Epipremnum aureum"
		return nil
	})
	require.NoError(t, err)

	doc, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "Epipremnum aureum", doc.Plants[0].Species)
}

func TestUpdateCallbackErrorAbortsWrite(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.Write(&model.Document{
		Plants: []*model.Subject{{ID: "p1", Nickname: "before"}},
	}))

	sentinel := assert.AnError
	err := store.Update("p1", func(doc *model.Document) error {
		doc.Plants[0].Nickname = "after"
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	doc, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "before", doc.Plants[0].Nickname)
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.Write(&model.Document{
		Plants: []*model.Subject{
			{ID: "p1"},
			{ID: "p2"},
		},
	}))

	const perSubject = 25
	var wg sync.WaitGroup
	for _, id := range []string{"p1", "p2"} {
		for range perSubject {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				err := store.Update(id, func(doc *model.Document) error {
					subject, _ := doc.FindSubject(id)
					subject.Conversations = append(subject.Conversations, model.Message{
						ID:   "m",
						Role: model.RoleUser,
					})
					return nil
				})
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	doc, err := store.Read()
	require.NoError(t, err)
	for _, subject := range doc.Plants {
		assert.Len(t, subject.Conversations, perSubject, "subject %s", subject.ID)
	}
}
