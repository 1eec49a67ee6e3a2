package syncnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lessonforge/playback/internal/logx"
	"github.com/lessonforge/playback/internal/player"
	"github.com/lessonforge/playback/internal/retryq"
	"github.com/lessonforge/playback/internal/video"
)

// Enqueuer is the slice of the retry queue the client needs: hand over a
// request descriptor that failed its first delivery.
type Enqueuer interface {
	Enqueue(req retryq.PendingRequest, maxRetries int)
}

// Client submits progress and answers to the learning backend. Submissions
// are fire-and-forget: the first delivery is attempted immediately and a
// failure hands the republishable descriptor to the retry queue. Callers
// never block on the network.
type Client struct {
	base      string
	attempter *retryq.HTTPAttempter
	queue     Enqueuer
	auth      TokenSource
	log       zerolog.Logger

	progressRetries   int
	answerRetries     int
	completionRetries int

	timeout  time.Duration
	dispatch func(func())
}

// Option configures a Client.
type Option func(*Client)

// WithRetryLimits overrides the retry ceilings per submission kind.
func WithRetryLimits(progress, answer, completion int) Option {
	return func(c *Client) {
		c.progressRetries = progress
		c.answerRetries = answer
		c.completionRetries = completion
	}
}

// WithDispatch replaces the goroutine dispatcher. Tests pass a synchronous
// dispatcher to observe outcomes deterministically.
func WithDispatch(fn func(func())) Option {
	return func(c *Client) { c.dispatch = fn }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.attempter = retryq.NewHTTPAttempter(hc) }
}

func NewClient(baseURL string, queue Enqueuer, auth TokenSource, opts ...Option) *Client {
	c := &Client{
		base:              baseURL,
		attempter:         retryq.NewHTTPAttempter(&http.Client{Timeout: 10 * time.Second}),
		queue:             queue,
		auth:              auth,
		log:               logx.WithComponent("syncnet"),
		progressRetries:   5,
		answerRetries:     8,
		completionRetries: 8,
		timeout:           10 * time.Second,
		dispatch:          func(f func()) { go f() },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type progressPayload struct {
	VideoID        string                   `json:"video_id"`
	CurrentTime    float64                  `json:"current_time"`
	Duration       float64                  `json:"duration"`
	Completed      bool                     `json:"completed"`
	LastGoodOffset float64                  `json:"last_good_offset"`
	Answers        []video.AnsweredQuestion `json:"answers"`
	UpdatedAt      int64                    `json:"updated_at"`
}

type completionPayload struct {
	progressPayload
	AnsweredCount int `json:"answered_count"`
	CorrectCount  int `json:"correct_count"`
}

func toPayload(videoID string, rec video.ProgressRecord) progressPayload {
	answers := make([]video.AnsweredQuestion, 0, len(rec.Answers))
	for _, a := range rec.Answers {
		answers = append(answers, a)
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return progressPayload{
		VideoID:        videoID,
		CurrentTime:    rec.CurrentTime,
		Duration:       rec.Duration,
		Completed:      rec.Completed,
		LastGoodOffset: rec.LastGoodOffset,
		Answers:        answers,
		UpdatedAt:      rec.UpdatedAt,
	}
}

// SubmitProgress pushes a periodic progress update.
func (c *Client) SubmitProgress(videoID string, rec video.ProgressRecord) {
	body, err := json.Marshal(toPayload(videoID, rec))
	if err != nil {
		c.log.Error().Err(err).Msg("encode progress payload")
		return
	}
	c.send(http.MethodPut, c.videoURL(videoID, "progress"), body, c.progressRetries)
}

// SubmitAnswer pushes one answer record with its policy metadata.
func (c *Client) SubmitAnswer(videoID string, ans player.AnswerRecord) {
	body, err := json.Marshal(ans)
	if err != nil {
		c.log.Error().Err(err).Msg("encode answer payload")
		return
	}
	target := fmt.Sprintf("%s/videos/%s/questions/%s/answer",
		c.base, url.PathEscape(videoID), url.PathEscape(ans.QuestionID))
	c.send(http.MethodPost, target, body, c.answerRetries)
}

// SubmitCompletion pushes the completion record with aggregate stats.
func (c *Client) SubmitCompletion(videoID string, rec video.ProgressRecord, answered, correct int) {
	body, err := json.Marshal(completionPayload{
		progressPayload: toPayload(videoID, rec),
		AnsweredCount:   answered,
		CorrectCount:    correct,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("encode completion payload")
		return
	}
	c.send(http.MethodPost, c.videoURL(videoID, "complete"), body, c.completionRetries)
}

func (c *Client) videoURL(videoID, suffix string) string {
	return fmt.Sprintf("%s/videos/%s/%s", c.base, url.PathEscape(videoID), suffix)
}

// send builds the republishable descriptor, attempts one delivery off hand
// and enqueues on failure.
func (c *Client) send(method, target string, body []byte, maxRetries int) {
	headers := map[string]string{"Content-Type": "application/json"}
	if c.auth != nil {
		token, err := c.auth.Token()
		if err != nil {
			c.log.Error().Err(err).Msg("mint device token")
		} else {
			headers["Authorization"] = "Bearer " + token
		}
	}
	req := retryq.PendingRequest{
		Method:  method,
		Target:  target,
		Headers: headers,
		Body:    body,
	}
	c.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.attempter.Attempt(ctx, req); err != nil {
			c.log.Warn().Err(err).Str("target", target).Msg("submission failed, queued for retry")
			c.queue.Enqueue(req, maxRetries)
		}
	})
}
