package dto

// PhotoEventPayload is the JSON body of photo lifecycle events.
type PhotoEventPayload struct {
	PhotoID      int64  `json:"photo_id"`
	DisplayKey   string `json:"display_key"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	UploadedBy   string `json:"uploaded_by,omitempty"`
	RemovedBy    string `json:"removed_by,omitempty"`
}
