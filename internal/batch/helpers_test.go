package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/common"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
	"github.com/joseph-ayodele/snapcheck/internal/imaging"
	"github.com/joseph-ayodele/snapcheck/internal/llm"
)

var teacher = auth.Identity{UserID: "teacher-1", Name: "Ms. Ada", Role: auth.RoleTeacher}

func testTarget() *Target {
	return NewTarget(
		&entity.Class{ID: "class-1", TeacherID: teacher.UserID, Name: "English 9"},
		&entity.Activity{ID: "act-1", ClassID: "class-1", Title: "Narrative", Description: "Write a story", Rubric: "Voice /10"},
		[]*entity.Student{
			{ID: "s1", ClassID: "class-1", Name: "Ada Lovelace"},
			{ID: "s2", ClassID: "class-1", Name: "Alan Turing"},
		},
	)
}

type fakeCompressor struct {
	onCompress func(filename string)
	err        map[string]error
}

func (f *fakeCompressor) Compress(_ context.Context, img entity.Image) (imaging.Result, error) {
	if f.onCompress != nil {
		f.onCompress(img.Filename)
	}
	if err := f.err[img.Filename]; err != nil {
		return imaging.Result{}, err
	}
	data := append([]byte("jpeg:"), img.Data...)
	return imaging.Result{
		Data:        data,
		ContentType: "image/jpeg",
		DataURL:     imaging.DataURL("image/jpeg", data),
	}, nil
}

// fakeAI answers every LLM operation; nil funcs use happy-path defaults.
type fakeAI struct {
	extract  func(ctx context.Context, img llm.ImageInput) (llm.Extraction, error)
	grade    func(ctx context.Context, req llm.GradeRequest) (llm.Grade, error)
	identify func(ctx context.Context, req llm.IdentifyRequest) (llm.Identification, error)
}

func (f *fakeAI) ExtractText(ctx context.Context, img llm.ImageInput) (llm.Extraction, error) {
	if f.extract != nil {
		return f.extract(ctx, img)
	}
	return llm.Extraction{Text: "An essay by Ada.\n" + string(img.Data)}, nil
}

func (f *fakeAI) GradeEssay(ctx context.Context, req llm.GradeRequest) (llm.Grade, error) {
	if f.grade != nil {
		return f.grade(ctx, req)
	}
	return llm.Grade{PreliminaryScore: "8/10", Feedback: "Vivid voice."}, nil
}

func (f *fakeAI) IdentifyStudent(ctx context.Context, req llm.IdentifyRequest) (llm.Identification, error) {
	if f.identify != nil {
		return f.identify(ctx, req)
	}
	return llm.Identification{StudentID: strPtr("s1"), StudentName: strPtr("Ada Lovelace"), Confidence: 0.9, Reason: "signed"}, nil
}

type fakeBlobs struct {
	mu     sync.Mutex
	put    map[string][]byte
	failAt int // 1-based call number that fails; 0 never
	calls  int
}

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return "", errors.New("bucket unavailable")
	}
	if f.put == nil {
		f.put = map[string][]byte{}
	}
	f.put[key] = data
	return "https://blobs.test/" + key, nil
}

type fakeWriter struct {
	hook  func()
	mu    sync.Mutex
	err   error
	calls int
	saved []*entity.Submission
}

func (f *fakeWriter) CreateBatch(_ context.Context, subs []*entity.Submission) error {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, subs...)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	scanner  *Scanner
	session  *auth.Session
	provider *auth.StaticProvider
	comp     *fakeCompressor
	ai       *fakeAI
	blobs    *fakeBlobs
	writer   *fakeWriter
	notes    *recordingNotifier
}

type harnessOption func(*harness, *Deps)

func withQueueSize(n int) harnessOption {
	return func(_ *harness, d *Deps) { d.QueueSize = n }
}

func withMetrics(m *Metrics) harnessOption {
	return func(h *harness, d *Deps) {
		d.Metrics = m
		d.Pipeline = NewPipeline(h.comp, h.ai, h.ai, h.ai, nil, WithNotifier(h.notes), WithMetrics(m))
		d.Committer = NewCommitter(h.blobs, h.writer, h.notes, m, nil)
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		provider: auth.NewStaticProvider([]common.TokenConfig{{Token: "tok", UserID: teacher.UserID, Name: teacher.Name}}, nil),
		comp:     &fakeCompressor{},
		ai:       &fakeAI{},
		blobs:    &fakeBlobs{},
		writer:   &fakeWriter{},
		notes:    &recordingNotifier{},
	}
	deps := Deps{
		Pipeline:  NewPipeline(h.comp, h.ai, h.ai, h.ai, nil, WithNotifier(h.notes), WithStepTimeout(5*time.Second)),
		Committer: NewCommitter(h.blobs, h.writer, h.notes, nil, nil),
		QueueSize: 16,
	}
	for _, o := range opts {
		o(h, &deps)
	}
	h.session = auth.NewSession(h.provider, teacher)
	sc, err := NewScanner(h.session, testTarget(), deps)
	require.NoError(t, err)
	h.scanner = sc
	t.Cleanup(h.session.Close)
	return h
}

func images(names ...string) []entity.Image {
	out := make([]entity.Image, len(names))
	for i, n := range names {
		out[i] = entity.Image{Data: []byte("img-" + n), Filename: n}
	}
	return out
}

func (h *harness) intakeAndWait(t *testing.T, names ...string) []string {
	t.Helper()
	ids, err := h.scanner.Intake(context.Background(), images(names...)...)
	require.NoError(t, err)
	require.Len(t, ids, len(names))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.scanner.Wait(ctx))
	return ids
}

func (h *harness) essay(t *testing.T, id string) entity.ProcessedEssay {
	t.Helper()
	e, ok := h.scanner.Ledger().Get(id)
	require.True(t, ok, "essay %s not in ledger", id)
	return e
}

func mustStatusErr(step string) error { return fmt.Errorf("%s exploded", step) }
