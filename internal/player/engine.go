package player

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lessonforge/playback/internal/logx"
	"github.com/lessonforge/playback/internal/progress"
	"github.com/lessonforge/playback/internal/video"
)

// State is the engine's playback lifecycle state.
type State string

const (
	StateLoading      State = "loading"
	StatePlaying      State = "playing"
	StatePaused       State = "paused"
	StateQuestionGate State = "question_gate"
	StateCompleted    State = "completed"
)

// completionThreshold is the fraction of the duration at which a video
// counts as watched.
const completionThreshold = 0.95

// triggerWindowSec is how far ahead of a question's offset a position update
// may land and still fire the trigger.
const triggerWindowSec = 1.0

// Policy violations. Handlers treat these as no-ops toward the playback
// surface, never as faults.
var (
	ErrNoPendingQuestion = errors.New("no pending question")
	ErrNotDismissable    = errors.New("question is not dismissable")
	ErrSeekNotAllowed    = errors.New("seeking is not allowed")
)

// AnswerRecord carries one answer submission with its policy metadata.
type AnswerRecord struct {
	QuestionID  string           `json:"question_id"`
	Value       string           `json:"value"`
	Correct     bool             `json:"correct"`
	AnsweredAt  int64            `json:"answered_at"`
	Policy      video.PolicyKind `json:"policy"`
	PositionSec float64          `json:"position_sec"`
	SeekTarget  float64          `json:"seek_target"`
}

// Submitter pushes state to the remote backend. Implementations must not
// block: the engine fires and forgets, recovery is the retry queue's job.
type Submitter interface {
	SubmitProgress(videoID string, rec video.ProgressRecord)
	SubmitAnswer(videoID string, ans AnswerRecord)
	SubmitCompletion(videoID string, rec video.ProgressRecord, answered, correct int)
}

// Surface receives playback directives. The real surface lives in the UI
// process and applies the directives echoed back through the local API; an
// embedded player can implement this directly.
type Surface interface {
	Play()
	Pause()
	Seek(offsetSec float64)
}

// NopSurface ignores every directive.
type NopSurface struct{}

func (NopSurface) Play()        {}
func (NopSurface) Pause()       {}
func (NopSurface) Seek(float64) {}

// AnswerResult is what OnAnswer hands back to the playback surface.
type AnswerResult struct {
	Correct    bool    `json:"correct"`
	SeekTarget float64 `json:"seek_target"`
}

// Session is a read-only snapshot of the engine for the playback surface.
// The pending question never exposes the correct answer.
type Session struct {
	VideoID   string           `json:"video_id"`
	State     State            `json:"state"`
	Position  float64          `json:"position"`
	Duration  float64          `json:"duration"`
	Playing   bool             `json:"playing"`
	CanSeek   bool             `json:"can_seek"`
	Completed bool             `json:"completed"`
	Policy    video.PolicyKind `json:"policy"`
	Pending   *PendingQuestion `json:"pending_question,omitempty"`
}

// PendingQuestion is the surface-facing view of a gating question.
type PendingQuestion struct {
	ID          string  `json:"id"`
	TriggerSec  float64 `json:"trigger_sec"`
	Dismissable bool    `json:"dismissable"`
}

// Engine owns playback position, question lifecycle, seek policy and
// completion detection for one video. All mutating operations are serialized
// by the engine's mutex; each runs to completion before the next.
type Engine struct {
	mu sync.Mutex

	desc    video.VideoDescriptor
	rec     video.ProgressRecord
	state   State
	playing bool
	pending *video.Question

	store   progress.Store
	submit  Submitter
	surface Surface
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSurface attaches a playback surface for directives.
func WithSurface(s Surface) Option {
	return func(e *Engine) { e.surface = s }
}

// WithClock replaces the engine's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine for the described video, resuming any progress record
// found in the store.
func New(desc video.VideoDescriptor, store progress.Store, submit Submitter, opts ...Option) *Engine {
	desc.SortQuestions()
	e := &Engine{
		desc:    desc,
		state:   StateLoading,
		store:   store,
		submit:  submit,
		surface: NopSurface{},
		now:     time.Now,
		log:     logx.WithComponent("player").With().Str("video_id", desc.ID).Logger(),
	}
	for _, o := range opts {
		o(e)
	}
	rec, err := store.Get(desc.ID)
	if err != nil {
		if !errors.Is(err, progress.ErrNotFound) {
			e.log.Warn().Err(err).Msg("load progress record")
		}
		rec = video.NewProgressRecord(desc.ID)
	}
	e.rec = rec
	return e
}

// OnPositionUpdate is the sole driver of playback state. The surface calls
// it at a bounded cadence with the elapsed time and total duration.
func (e *Engine) OnPositionUpdate(t, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateLoading {
		e.state = StatePlaying
		e.playing = true
	}

	e.rec.CurrentTime = t
	e.rec.Duration = duration
	e.rec.UpdatedAt = e.now().Unix()

	if e.pending == nil {
		if q := e.findTriggered(t); q != nil {
			e.pending = q
			e.state = StateQuestionGate
			e.playing = false
			e.persistLocal()
			e.surface.Pause()
			e.log.Debug().Str("question_id", q.ID).Float64("at", t).Msg("question gate entered")
			return
		}
	}

	if !e.rec.Completed && duration > 0 && t >= completionThreshold*duration {
		e.rec.Completed = true
		if e.state != StateQuestionGate {
			e.state = StateCompleted
		}
		e.persistLocal()
		answered, correct := e.rec.Stats()
		e.submit.SubmitCompletion(e.desc.ID, e.rec, answered, correct)
		e.log.Info().Int("answered", answered).Int("correct", correct).Msg("video completed")
		return
	}

	e.persistLocal()
	e.submit.SubmitProgress(e.desc.ID, e.rec)
}

// findTriggered returns the first unanswered question whose trigger offset
// lies within the forward window of t. Questions already answered, even
// incorrectly, never retrigger within this progress record's lifetime.
func (e *Engine) findTriggered(t float64) *video.Question {
	for i := range e.desc.Questions {
		q := &e.desc.Questions[i]
		if t >= q.TriggerSec && t < q.TriggerSec+triggerWindowSec && !e.rec.Answered(q.ID) {
			return q
		}
	}
	return nil
}

// OnAnswer resolves the pending question: it records the answer, computes
// the policy-dependent seek target, submits exactly one answer record,
// instructs the surface to seek and resumes playback. Submission failures
// never block local state progression.
func (e *Engine) OnAnswer(value string) (AnswerResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return AnswerResult{}, ErrNoPendingQuestion
	}
	q := *e.pending
	correct := strings.TrimSpace(value) == q.Answer
	at := e.now().Unix()
	e.rec.RecordAnswer(q.ID, correct, at)

	cur := e.rec.CurrentTime
	target := cur
	switch e.desc.Policy {
	case video.PolicyRestricted:
		if correct {
			e.rec.LastGoodOffset = cur
		} else {
			target = 0
			e.rec.LastGoodOffset = 0
		}
	case video.PolicyInteractive:
		if correct {
			e.rec.LastGoodOffset = cur
		} else {
			target = e.rec.LastGoodOffset
		}
	}

	e.pending = nil
	if e.rec.Completed {
		e.state = StateCompleted
	} else {
		e.state = StatePlaying
	}
	e.playing = true
	e.rec.CurrentTime = target
	e.persistLocal()

	e.submit.SubmitAnswer(e.desc.ID, AnswerRecord{
		QuestionID:  q.ID,
		Value:       value,
		Correct:     correct,
		AnsweredAt:  at,
		Policy:      e.desc.Policy,
		PositionSec: cur,
		SeekTarget:  target,
	})

	e.surface.Seek(target)
	e.surface.Play()
	e.log.Debug().Str("question_id", q.ID).Bool("correct", correct).Float64("seek_target", target).Msg("question answered")
	return AnswerResult{Correct: correct, SeekTarget: target}, nil
}

// DismissQuestion exits the question gate without recording an answer. Only
// legal when the pending question is dismissable.
func (e *Engine) DismissQuestion() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return ErrNoPendingQuestion
	}
	if !e.pending.Dismissable {
		return ErrNotDismissable
	}
	e.pending = nil
	if e.rec.Completed {
		e.state = StateCompleted
	} else {
		e.state = StatePlaying
	}
	e.playing = true
	e.surface.Play()
	return nil
}

// TogglePlayPause flips the playing flag. Ignored while a question gates
// playback.
func (e *Engine) TogglePlayPause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateQuestionGate || e.state == StateLoading {
		return
	}
	if e.playing {
		e.playing = false
		if e.state == StatePlaying {
			e.state = StatePaused
		}
		e.surface.Pause()
	} else {
		e.playing = true
		if e.state == StatePaused {
			e.state = StatePlaying
		}
		e.surface.Play()
	}
}

// RequestSeek applies a user seek if the policy allows it; otherwise it is
// rejected as a no-op with ErrSeekNotAllowed.
func (e *Engine) RequestSeek(t float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !video.CanSeek(e.desc.Policy, e.rec.Completed) {
		return ErrSeekNotAllowed
	}
	e.rec.CurrentTime = t
	e.rec.UpdatedAt = e.now().Unix()
	e.persistLocal()
	e.surface.Seek(t)
	return nil
}

// Session returns a snapshot for the playback surface.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Session{
		VideoID:   e.desc.ID,
		State:     e.state,
		Position:  e.rec.CurrentTime,
		Duration:  e.rec.Duration,
		Playing:   e.playing,
		CanSeek:   video.CanSeek(e.desc.Policy, e.rec.Completed),
		Completed: e.rec.Completed,
		Policy:    e.desc.Policy,
	}
	if e.pending != nil {
		s.Pending = &PendingQuestion{
			ID:          e.pending.ID,
			TriggerSec:  e.pending.TriggerSec,
			Dismissable: e.pending.Dismissable,
		}
	}
	return s
}

// Progress returns a copy of the current progress record.
func (e *Engine) Progress() video.ProgressRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.rec
	answers := make(map[string]video.AnsweredQuestion, len(e.rec.Answers))
	for k, v := range e.rec.Answers {
		answers[k] = v
	}
	rec.Answers = answers
	return rec
}

// persistLocal writes the record to durable local storage. Failures are
// logged and playback continues; in-memory state stays authoritative.
func (e *Engine) persistLocal() {
	if err := e.store.Put(e.rec); err != nil {
		e.log.Error().Err(err).Msg("persist progress record")
	}
}
