package model

import "time"

// PlayLog records one track that started playing.
type PlayLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Path      string    `json:"path" gorm:"size:1024;not null"`
	Title     string    `json:"title" gorm:"size:255"`
	Artist    string    `json:"artist" gorm:"size:255;index"`
	Album     string    `json:"album" gorm:"size:255"`
	Length    float64   `json:"length"`
	StartedAt time.Time `json:"startedAt" gorm:"index;not null"`
}

func (PlayLog) TableName() string {
	return "play_logs"
}

// NewPlayLog describes track as started at the given time.
func NewPlayLog(track *Track, at time.Time) *PlayLog {
	entry := &PlayLog{Path: track.Path(), StartedAt: at}
	if meta := track.Metadata(); meta != nil {
		entry.Title = meta.Title
		entry.Artist = meta.Artist
		entry.Album = meta.Album
		entry.Length = meta.Length
	}
	return entry
}
