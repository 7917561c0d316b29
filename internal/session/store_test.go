package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/tclass-evaluator/internal/cache"
	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	c, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)
	return NewStore(c, time.Hour)
}

func TestStoreSaveAndGet(t *testing.T) {
	store := newMemoryStore(t)

	sess := New()
	sess.SetDocument(document.NewDocument("PDF: card.pdf", "model card text", document.PDF))
	sess.SetAnalysis(Analysis{
		Model:  "gemini-3-pro-preview",
		Source: "PDF: card.pdf",
		Result: report.ParsedResult{
			MarkdownReport: "# T4",
			Scores:         report.Scores{report.WeightScore: 10},
			ScoreParseOK:   true,
		},
	})
	require.NoError(t, store.Save(sess))

	loaded, err := store.Get(sess.ID)
	require.NoError(t, err)
	require.True(t, loaded.HasDocument())
	assert.Equal(t, "model card text", loaded.Document.Content)
	assert.Equal(t, document.PDF, loaded.Document.Type)
	require.NotNil(t, loaded.Analysis)
	assert.Equal(t, 10.0, loaded.Analysis.Result.Scores.Get(report.WeightScore))
}

func TestStoreGetMissing(t *testing.T) {
	store := newMemoryStore(t)

	_, err := store.Get(New().ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLoadCreatesSession(t *testing.T) {
	store := newMemoryStore(t)

	sess, created, err := store.Load("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, ValidID(sess.ID))
	assert.False(t, sess.HasDocument())

	require.NoError(t, store.Save(sess))
	again, created, err := store.Load(sess.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sess.ID, again.ID)

	require.NoError(t, store.Delete(sess.ID))
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetDocumentClearsAnalysis(t *testing.T) {
	sess := New()
	sess.SetDocument(document.NewDocument("URL: a", "a", document.HTML))
	sess.SetAnalysis(Analysis{Model: "m"})

	sess.SetDocument(document.NewDocument("URL: b", "b", document.HTML))
	assert.Nil(t, sess.Analysis)
	assert.Equal(t, "URL: b", sess.Document.Source)
}

func TestReset(t *testing.T) {
	sess := New()
	sess.SetDocument(document.NewDocument("URL: a", "a", document.HTML))
	sess.SetAnalysis(Analysis{Model: "m"})

	sess.Reset()
	assert.False(t, sess.HasDocument())
	assert.Nil(t, sess.Analysis)
}

func TestCloneIsIndependent(t *testing.T) {
	sess := New()
	sess.SetDocument(document.NewDocument("PDF: a.pdf", "a", document.PDF))
	sess.SetAnalysis(Analysis{Result: report.ParsedResult{Scores: report.Scores{report.ArchScore: 3}, Warnings: []string{"w"}}})

	clone := sess.Clone()
	clone.Document.Content = "changed"
	clone.Analysis.Result.Scores[report.ArchScore] = 9
	clone.Analysis.Result.Warnings[0] = "x"

	assert.Equal(t, "a", sess.Document.Content)
	assert.Equal(t, 3.0, sess.Analysis.Result.Scores.Get(report.ArchScore))
	assert.Equal(t, "w", sess.Analysis.Result.Warnings[0])
}

func TestStoreLockSerializesSameSession(t *testing.T) {
	store := newMemoryStore(t)
	id := New().ID

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock(id)
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Equal(t, 0, store.activeLocks())
}

func TestStoreLockIndependentSessions(t *testing.T) {
	store := newMemoryStore(t)

	unlockA := store.Lock(New().ID)
	done := make(chan struct{})
	go func() {
		unlockB := store.Lock(New().ID)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another session should not block")
	}
	unlockA()
}

func TestStoreWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(cache.Config{Type: cache.TypeRedis, RedisAddr: mr.Addr(), KeyPrefix: "tclass:"})
	require.NoError(t, err)
	defer c.Close()

	store := NewStore(c, time.Minute)
	sess := New()
	sess.SetDocument(document.NewDocument("Text: a.txt", "hello", document.PlainText))
	require.NoError(t, store.Save(sess))

	assert.True(t, mr.Exists("tclass:session:"+sess.ID))
	assert.Equal(t, time.Minute, mr.TTL("tclass:session:"+sess.ID))

	loaded, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", loaded.Document.Content)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
