package player_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonforge/playback/internal/player"
	"github.com/lessonforge/playback/internal/progress"
	"github.com/lessonforge/playback/internal/video"
)

// fakeSubmitter records every submission synchronously.
type fakeSubmitter struct {
	progressCalls   int
	answers         []player.AnswerRecord
	completionCalls int
	lastAnswered    int
	lastCorrect     int
}

func (f *fakeSubmitter) SubmitProgress(string, video.ProgressRecord) { f.progressCalls++ }
func (f *fakeSubmitter) SubmitAnswer(_ string, ans player.AnswerRecord) {
	f.answers = append(f.answers, ans)
}
func (f *fakeSubmitter) SubmitCompletion(_ string, _ video.ProgressRecord, answered, correct int) {
	f.completionCalls++
	f.lastAnswered = answered
	f.lastCorrect = correct
}

// fakeSurface records directives.
type fakeSurface struct {
	plays, pauses int
	seeks         []float64
}

func (f *fakeSurface) Play()          { f.plays++ }
func (f *fakeSurface) Pause()         { f.pauses++ }
func (f *fakeSurface) Seek(t float64) { f.seeks = append(f.seeks, t) }

func fixedClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time { return t }
}

func interactiveVideo() video.VideoDescriptor {
	return video.VideoDescriptor{
		ID:          "v1",
		DurationSec: 600,
		Policy:      video.PolicyInteractive,
		SourceURL:   "https://cdn.example.com/v1.m3u8",
		Questions: []video.Question{
			{ID: "q120", TriggerSec: 120, Answer: "a"},
			{ID: "q300", TriggerSec: 300, Answer: "b"},
		},
	}
}

func newEngine(t *testing.T, desc video.VideoDescriptor) (*player.Engine, *fakeSubmitter, *fakeSurface) {
	t.Helper()
	sub := &fakeSubmitter{}
	surf := &fakeSurface{}
	e := player.New(desc, progress.NewInMemoryStore(), sub,
		player.WithSurface(surf), player.WithClock(fixedClock()))
	return e, sub, surf
}

func TestQuestionGateWrongAnswerInteractive(t *testing.T) {
	// Scenario: interactive video, duration 600s, question at 120s.
	e, sub, surf := newEngine(t, interactiveVideo())

	for ts := 1.0; ts < 120; ts += 30 {
		e.OnPositionUpdate(ts, 600)
	}
	assert.Equal(t, player.StatePlaying, e.Session().State)

	e.OnPositionUpdate(120, 600)
	sess := e.Session()
	require.Equal(t, player.StateQuestionGate, sess.State)
	assert.False(t, sess.Playing)
	require.NotNil(t, sess.Pending)
	assert.Equal(t, "q120", sess.Pending.ID)
	assert.Equal(t, 1, surf.pauses)

	// Wrong answer with no prior correct answer rewinds to 0.
	res, err := e.OnAnswer("wrong")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, 0.0, res.SeekTarget)
	assert.Equal(t, []float64{0}, surf.seeks)

	sess = e.Session()
	assert.Equal(t, player.StatePlaying, sess.State)
	assert.True(t, sess.Playing)
	assert.Nil(t, sess.Pending)

	require.Len(t, sub.answers, 1)
	assert.Equal(t, "q120", sub.answers[0].QuestionID)
	assert.False(t, sub.answers[0].Correct)
	assert.Equal(t, video.PolicyInteractive, sub.answers[0].Policy)
}

func TestCorrectAnswerAdvancesLastGoodOffset(t *testing.T) {
	// Scenario: correct answer at 300s while last-known-good-offset is 0.
	e, _, surf := newEngine(t, interactiveVideo())

	e.OnPositionUpdate(120, 600)
	_, err := e.OnAnswer("wrong") // q120 answered wrong; LGO stays 0
	require.NoError(t, err)

	e.OnPositionUpdate(300, 600)
	require.Equal(t, player.StateQuestionGate, e.Session().State)

	res, err := e.OnAnswer("b")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 300.0, res.SeekTarget)
	assert.Equal(t, 300.0, e.Progress().LastGoodOffset)
	assert.Equal(t, []float64{0, 300}, surf.seeks)
}

func TestAnsweredQuestionNeverRetriggers(t *testing.T) {
	e, sub, _ := newEngine(t, interactiveVideo())

	e.OnPositionUpdate(120, 600)
	_, err := e.OnAnswer("wrong") // rewinds to 0
	require.NoError(t, err)

	// Replaying past the trigger must not gate again.
	e.OnPositionUpdate(120, 600)
	assert.Equal(t, player.StatePlaying, e.Session().State)
	assert.Len(t, sub.answers, 1)
}

func TestRestrictedWrongAnswerRestarts(t *testing.T) {
	desc := interactiveVideo()
	desc.Policy = video.PolicyRestricted

	e, _, surf := newEngine(t, desc)

	e.OnPositionUpdate(120, 600)
	_, err := e.OnAnswer("a") // correct; LGO = 120
	require.NoError(t, err)
	assert.Equal(t, 120.0, e.Progress().LastGoodOffset)

	e.OnPositionUpdate(300, 600)
	res, err := e.OnAnswer("nope")
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.SeekTarget)
	assert.Equal(t, 0.0, e.Progress().LastGoodOffset, "restricted wrong answer resets last good offset")
	assert.Equal(t, []float64{120, 0}, surf.seeks)
}

func TestSeekPolicy(t *testing.T) {
	// Scenario: restricted video, seeking blocked until completed.
	desc := interactiveVideo()
	desc.Policy = video.PolicyRestricted
	desc.Questions = nil

	e, _, surf := newEngine(t, desc)
	e.OnPositionUpdate(10, 600)

	err := e.RequestSeek(50)
	assert.ErrorIs(t, err, player.ErrSeekNotAllowed)
	assert.Empty(t, surf.seeks)
	assert.False(t, e.Session().CanSeek)

	// Reach 95% of the duration: completion flips canSeek.
	e.OnPositionUpdate(570, 600)
	sess := e.Session()
	assert.True(t, sess.Completed)
	assert.True(t, sess.CanSeek)
	assert.Equal(t, player.StateCompleted, sess.State)

	require.NoError(t, e.RequestSeek(50))
	assert.Equal(t, []float64{50}, surf.seeks)
}

func TestFreePolicyAlwaysSeekable(t *testing.T) {
	desc := interactiveVideo()
	desc.Policy = video.PolicyFree
	desc.Questions = nil

	e, _, _ := newEngine(t, desc)
	e.OnPositionUpdate(1, 600)
	assert.True(t, e.Session().CanSeek)
	assert.NoError(t, e.RequestSeek(400))
}

func TestCompletionIsMonotonic(t *testing.T) {
	desc := interactiveVideo()
	desc.Questions = nil

	e, sub, _ := newEngine(t, desc)
	e.OnPositionUpdate(590, 600)
	require.True(t, e.Session().Completed)
	assert.Equal(t, 1, sub.completionCalls)

	// Later updates, even from the start of the video, never clear it.
	e.OnPositionUpdate(5, 600)
	assert.True(t, e.Session().Completed)
	assert.Equal(t, 1, sub.completionCalls, "completion record submitted once")
}

func TestCompletionAggregatesStats(t *testing.T) {
	e, sub, _ := newEngine(t, interactiveVideo())

	e.OnPositionUpdate(120, 600)
	_, _ = e.OnAnswer("a") // correct
	e.OnPositionUpdate(300, 600)
	_, _ = e.OnAnswer("x") // wrong, rewinds to 120

	e.OnPositionUpdate(580, 600)
	assert.Equal(t, 1, sub.completionCalls)
	assert.Equal(t, 2, sub.lastAnswered)
	assert.Equal(t, 1, sub.lastCorrect)
}

func TestAnswerWithoutPendingQuestion(t *testing.T) {
	e, sub, _ := newEngine(t, interactiveVideo())
	e.OnPositionUpdate(10, 600)

	_, err := e.OnAnswer("a")
	assert.ErrorIs(t, err, player.ErrNoPendingQuestion)
	assert.Empty(t, sub.answers)
}

func TestDismissQuestion(t *testing.T) {
	desc := interactiveVideo()
	desc.Questions = []video.Question{
		{ID: "qd", TriggerSec: 60, Answer: "a", Dismissable: true},
		{ID: "qf", TriggerSec: 180, Answer: "b"},
	}
	e, sub, _ := newEngine(t, desc)

	e.OnPositionUpdate(60, 600)
	require.NoError(t, e.DismissQuestion())
	assert.Equal(t, player.StatePlaying, e.Session().State)
	assert.Empty(t, sub.answers, "dismissal records no answer")

	// A dismissed question was never answered, so it may trigger again.
	e.OnPositionUpdate(60.5, 600)
	assert.Equal(t, player.StateQuestionGate, e.Session().State)
	_, _ = e.OnAnswer("a")

	// Non-dismissable questions reject dismissal.
	e.OnPositionUpdate(180, 600)
	require.Equal(t, player.StateQuestionGate, e.Session().State)
	assert.ErrorIs(t, e.DismissQuestion(), player.ErrNotDismissable)
}

func TestTogglePlayPause(t *testing.T) {
	desc := interactiveVideo()
	desc.Questions = nil
	e, _, surf := newEngine(t, desc)

	e.OnPositionUpdate(10, 600)
	e.TogglePlayPause()
	sess := e.Session()
	assert.Equal(t, player.StatePaused, sess.State)
	assert.False(t, sess.Playing)
	assert.Equal(t, 1, surf.pauses)

	e.TogglePlayPause()
	sess = e.Session()
	assert.Equal(t, player.StatePlaying, sess.State)
	assert.True(t, sess.Playing)
}

func TestToggleIgnoredWhileGated(t *testing.T) {
	e, _, _ := newEngine(t, interactiveVideo())
	e.OnPositionUpdate(120, 600)
	require.Equal(t, player.StateQuestionGate, e.Session().State)

	e.TogglePlayPause()
	assert.Equal(t, player.StateQuestionGate, e.Session().State)
}

func TestSessionHidesCorrectAnswer(t *testing.T) {
	e, _, _ := newEngine(t, interactiveVideo())
	e.OnPositionUpdate(120, 600)
	sess := e.Session()
	require.NotNil(t, sess.Pending)
	// The surface view carries only id, trigger and dismissable flag.
	assert.Equal(t, player.PendingQuestion{ID: "q120", TriggerSec: 120}, *sess.Pending)
}

func TestProgressResumesFromStore(t *testing.T) {
	store := progress.NewInMemoryStore()
	rec := video.NewProgressRecord("v1")
	rec.CurrentTime = 200
	rec.LastGoodOffset = 120
	rec.RecordAnswer("q120", true, 1)
	require.NoError(t, store.Put(rec))

	e := player.New(interactiveVideo(), store, &fakeSubmitter{}, player.WithClock(fixedClock()))

	// q120 was already answered in a previous session and must not retrigger.
	e.OnPositionUpdate(120, 600)
	assert.Equal(t, player.StatePlaying, e.Session().State)
	assert.Equal(t, 120.0, e.Progress().LastGoodOffset)
}

func TestManagerReusesEngines(t *testing.T) {
	m := player.NewManager(progress.NewInMemoryStore(), &fakeSubmitter{})
	a := m.Load(interactiveVideo())
	b := m.Load(interactiveVideo())
	assert.Same(t, a, b)

	got, ok := m.Get("v1")
	assert.True(t, ok)
	assert.Same(t, a, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}
