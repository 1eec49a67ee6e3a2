package progress

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lessonforge/playback/internal/video"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(videoID string) (video.ProgressRecord, error) {
	row := s.db.QueryRow(`SELECT video_id,current_time_sec,duration_sec,completed,last_good_offset,answers_json,updated_at
		FROM progress WHERE video_id=$1`, videoID)
	var rec video.ProgressRecord
	var ajson string
	if err := row.Scan(&rec.VideoID, &rec.CurrentTime, &rec.Duration, &rec.Completed, &rec.LastGoodOffset, &ajson, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return video.ProgressRecord{}, ErrNotFound
		}
		return video.ProgressRecord{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &rec.Answers); err != nil {
		rec.Answers = map[string]video.AnsweredQuestion{}
	}
	return rec, nil
}

func (s *SQLStore) Put(rec video.ProgressRecord) error {
	aj, err := json.Marshal(rec.Answers)
	if err != nil {
		return err
	}
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = time.Now().Unix()
	}
	_, err = s.db.Exec(`INSERT INTO progress (video_id,current_time_sec,duration_sec,completed,last_good_offset,answers_json,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (video_id) DO UPDATE SET
		  current_time_sec=EXCLUDED.current_time_sec,
		  duration_sec=EXCLUDED.duration_sec,
		  completed=EXCLUDED.completed,
		  last_good_offset=EXCLUDED.last_good_offset,
		  answers_json=EXCLUDED.answers_json,
		  updated_at=EXCLUDED.updated_at`,
		rec.VideoID, rec.CurrentTime, rec.Duration, rec.Completed, rec.LastGoodOffset, string(aj), rec.UpdatedAt)
	return err
}
