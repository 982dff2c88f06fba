package entity

import "time"

// Photo is one gallery image. Rows are created by ingestion and deleted by
// removal, never updated.
type Photo struct {
	ID           int64   `json:"id"`
	Filename     string  `json:"filename"`
	OriginalName string  `json:"originalName"`
	MimeType     string  `json:"mimetype"`
	Size         int64   `json:"size"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	UploadedBy   string  `json:"uploadedBy"`

	CreatedAt time.Time `json:"createdAt"`
}
