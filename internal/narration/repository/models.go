package repository

import "github.com/pitabwire/frame/data"

// AudioRecord indexes archived synthesis output. The audio bytes live in
// the blob bucket under BlobKey.
type AudioRecord struct {
	data.BaseModel

	CacheKey        string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_ar_cache_key" json:"cache_key"`
	Provider        string  `gorm:"type:varchar(32);not null;index:idx_ar_provider"         json:"provider"`
	Voice           string  `gorm:"type:varchar(128);not null"                               json:"voice"`
	TextLength      int     `gorm:"default:0"                                                json:"text_length"`
	ContentType     string  `gorm:"type:varchar(64)"                                         json:"content_type"`
	SizeBytes       int64   `gorm:"default:0"                                                json:"size_bytes"`
	DurationSeconds float64 `gorm:"default:0"                                                json:"duration_seconds"`
	BlobKey         string  `gorm:"type:varchar(255);not null"                               json:"blob_key"`
}

func (AudioRecord) TableName() string { return "audio_records" }
