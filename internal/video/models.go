package video

import "sort"

// PolicyKind governs whether and when a viewer may seek.
type PolicyKind string

const (
	PolicyFree        PolicyKind = "free"        // seek anywhere, any time
	PolicyRestricted  PolicyKind = "restricted"  // no seeking until completed; wrong answer restarts
	PolicyInteractive PolicyKind = "interactive" // no seeking until completed; wrong answer rewinds to last good offset
)

// Valid reports whether k is one of the known policy kinds.
func (k PolicyKind) Valid() bool {
	switch k {
	case PolicyFree, PolicyRestricted, PolicyInteractive:
		return true
	}
	return false
}

// Question is an in-video prompt tied to a playback offset.
type Question struct {
	ID          string  `json:"id"`
	TriggerSec  float64 `json:"trigger_sec"`
	Answer      string  `json:"answer"` // correct-answer reference
	Dismissable bool    `json:"dismissable"`
}

// VideoDescriptor is the immutable description of a playable video.
type VideoDescriptor struct {
	ID          string     `json:"id"`
	DurationSec float64    `json:"duration_sec"`
	Policy      PolicyKind `json:"policy"`
	SourceURL   string     `json:"source_url"`
	Questions   []Question `json:"questions,omitempty"`
}

// SortQuestions orders the question set by trigger offset, ascending.
// Engines rely on this order when scanning for the next trigger.
func (d *VideoDescriptor) SortQuestions() {
	sort.Slice(d.Questions, func(i, j int) bool {
		return d.Questions[i].TriggerSec < d.Questions[j].TriggerSec
	})
}

// AnsweredQuestion records the outcome of one question within a progress
// record. At most one entry exists per question ID; a later answer for the
// same ID replaces the earlier one.
type AnsweredQuestion struct {
	QuestionID string `json:"question_id"`
	AnsweredAt int64  `json:"answered_at"` // unix seconds
	Correct    bool   `json:"correct"`
}

// ProgressRecord is the durable per-video progress state. It is created on
// the first position update, mutated on every position update and answer,
// and persisted locally on every mutation.
type ProgressRecord struct {
	VideoID        string                      `json:"video_id"`
	CurrentTime    float64                     `json:"current_time"`
	Duration       float64                     `json:"duration"`
	Completed      bool                        `json:"completed"`
	Answers        map[string]AnsweredQuestion `json:"answers"`
	LastGoodOffset float64                     `json:"last_good_offset"`
	UpdatedAt      int64                       `json:"updated_at"` // unix seconds
}

// NewProgressRecord returns an empty record for the given video.
func NewProgressRecord(videoID string) ProgressRecord {
	return ProgressRecord{
		VideoID: videoID,
		Answers: map[string]AnsweredQuestion{},
	}
}

// RecordAnswer appends or replaces the entry for q, keeping answers unique
// by question ID.
func (p *ProgressRecord) RecordAnswer(questionID string, correct bool, at int64) {
	if p.Answers == nil {
		p.Answers = map[string]AnsweredQuestion{}
	}
	p.Answers[questionID] = AnsweredQuestion{QuestionID: questionID, AnsweredAt: at, Correct: correct}
}

// Answered reports whether the question has been answered at all, correctly
// or not. Answered questions never retrigger within this record's lifetime.
func (p *ProgressRecord) Answered(questionID string) bool {
	_, ok := p.Answers[questionID]
	return ok
}

// Stats returns the aggregate answered/correct counts used in completion
// submissions.
func (p *ProgressRecord) Stats() (answered, correct int) {
	for _, a := range p.Answers {
		answered++
		if a.Correct {
			correct++
		}
	}
	return
}

// CanSeek is the seek-permission rule: Free videos are always seekable,
// Restricted and Interactive videos only once completed.
func CanSeek(policy PolicyKind, completed bool) bool {
	return policy == PolicyFree || completed
}
