package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/domain"
	"github.com/thywilljoshua/urdu-link/internal/ingest"
	"github.com/thywilljoshua/urdu-link/internal/progress"
	"github.com/thywilljoshua/urdu-link/internal/raster"
	"github.com/thywilljoshua/urdu-link/internal/session"
	"github.com/thywilljoshua/urdu-link/internal/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeTranslator struct {
	calls atomic.Int32
	fail  map[string]bool // keyed by payload content
}

func (f *fakeTranslator) TranslatePage(_ context.Context, image []byte, _ string, _ domain.Quality) (ai.Translation, error) {
	f.calls.Add(1)
	key := string(image[len(pngHeader):])
	if f.fail[key] {
		return ai.Translation{}, domain.RemoteCallError("upstream 500", errors.New("boom"))
	}
	return ai.Translation{Original: key, Translated: "# " + key + "\n\nمتن " + key}, nil
}

func (f *fakeTranslator) TranslateText(_ context.Context, text string, _ domain.Quality) (ai.Translation, error) {
	f.calls.Add(1)
	return ai.Translation{Original: text, Translated: "ترجمہ"}, nil
}

type recorder struct {
	mu   sync.Mutex
	runs []store.Run
}

func (r *recorder) RecordRun(_ context.Context, run store.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func pngUpload(name, body string) ingest.Upload {
	return ingest.FromBytes(name, append(append([]byte{}, pngHeader...), body...))
}

func baseConfig(tr ai.Translator) Config {
	return Config{
		Quality:     domain.QualityFast,
		Concurrency: 1,
		Limits:      ingest.DefaultLimits(),
		Raster:      raster.DefaultOptions(),
		Translator:  tr,
		Logger:      zerolog.Nop(),
	}
}

func TestRunTranslatesInOrder(t *testing.T) {
	tr := &fakeTranslator{}
	sess := session.New()
	var events []progress.Snapshot
	sess.OnProgress(func(s progress.Snapshot) { events = append(events, s) })

	cfg := baseConfig(tr)
	cfg.Session = sess
	res, err := Run(context.Background(), []ingest.Upload{
		pngUpload("a.png", "A"),
		ingest.FromBytes("notes.csv", []byte("a,b\n")),
		pngUpload("b.png", "B"),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "a.png", res.Records[0].Source)
	assert.Equal(t, "b.png", res.Records[1].Source)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "notes.csv", res.Warnings[0].Source)
	assert.Equal(t, 100, res.Progress.Percent)
	assert.Equal(t, progress.StatusSuccess, res.Progress.Status)
	assert.NotEmpty(t, res.SessionID)
	assert.EqualValues(t, 2, tr.calls.Load())

	snap := sess.Snapshot()
	assert.Equal(t, session.StatusFinished, snap.Status)
	assert.Len(t, snap.Records, 2)

	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
	}
	assert.Equal(t, 100, events[len(events)-1].Percent)
}

func TestRunRejectsOversizeBeforeStarting(t *testing.T) {
	tr := &fakeTranslator{}
	sess := session.New()
	cfg := baseConfig(tr)
	cfg.Session = sess
	cfg.Limits = ingest.Limits{MaxTotal: 10}

	_, err := Run(context.Background(), []ingest.Upload{pngUpload("a.png", "AAAAAAAAAAAA")}, cfg)
	assert.ErrorIs(t, err, domain.ErrSizeLimitExceeded)
	assert.Equal(t, session.StatusIdle, sess.Snapshot().Status)
	assert.Zero(t, tr.calls.Load())
}

func TestRunBusySession(t *testing.T) {
	sess := session.New()
	_, err := sess.Begin()
	require.NoError(t, err)

	cfg := baseConfig(&fakeTranslator{})
	cfg.Session = sess
	_, err = Run(context.Background(), []ingest.Upload{pngUpload("a.png", "A")}, cfg)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
}

func TestRunFailSoftAndRecordsRun(t *testing.T) {
	tr := &fakeTranslator{fail: map[string]bool{"B": true}}
	rec := &recorder{}
	cfg := baseConfig(tr)
	cfg.Runs = rec
	cfg.Concurrency = 3

	res, err := Run(context.Background(), []ingest.Upload{
		pngUpload("a.png", "A"), pngUpload("b.png", "B"), pngUpload("c.png", "C"),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "a.png", res.Records[0].Source)
	assert.Equal(t, "c.png", res.Records[1].Source)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "b.png", res.Warnings[0].Source)
	assert.Equal(t, 100, res.Progress.Percent)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, res.SessionID, run.ID)
	assert.Equal(t, string(session.StatusFinished), run.Status)
	assert.Equal(t, 3, run.TotalUnits)
	assert.Equal(t, 2, run.Records)
	assert.Equal(t, 1, run.Warnings)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := session.New()
	rec := &recorder{}
	cfg := baseConfig(&fakeTranslator{})
	cfg.Session = sess
	cfg.Runs = rec

	res, err := Run(ctx, []ingest.Upload{pngUpload("a.png", "A")}, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Records)
	assert.Equal(t, session.StatusFailed, sess.Snapshot().Status)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, string(session.StatusFailed), rec.runs[0].Status)
}

func TestRunWritesFlowExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	cfg := baseConfig(&fakeTranslator{})
	cfg.OutDir = dir

	res, err := Run(context.Background(), []ingest.Upload{pngUpload("a.png", "A")}, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "Urdu_Manuscript.doc")}, res.Files)

	b, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "\ufeff"))
	assert.Contains(t, string(b), "متن A")
}

func TestRunWithoutTranslator(t *testing.T) {
	cfg := baseConfig(nil)
	_, err := Run(context.Background(), []ingest.Upload{pngUpload("a.png", "A")}, cfg)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

type gatedTranslator struct {
	fakeTranslator
	gate chan struct{}
}

func (g *gatedTranslator) TranslatePage(ctx context.Context, image []byte, mime string, q domain.Quality) (ai.Translation, error) {
	<-g.gate
	return g.fakeTranslator.TranslatePage(ctx, image, mime, q)
}

func TestStartClaimsSessionSynchronously(t *testing.T) {
	tr := &gatedTranslator{gate: make(chan struct{})}
	sess := session.New()
	cfg := baseConfig(tr)
	cfg.Session = sess

	job, err := Start(context.Background(), []ingest.Upload{pngUpload("a.png", "A")}, cfg)
	require.NoError(t, err)
	assert.Equal(t, job.ID, sess.Snapshot().ID)
	assert.True(t, sess.Processing())

	_, err = Start(context.Background(), []ingest.Upload{pngUpload("b.png", "B")}, cfg)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(tr.gate)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	<-job.Done()
	assert.False(t, sess.Processing())
}
