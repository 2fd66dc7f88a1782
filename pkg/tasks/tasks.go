// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// ThumbnailTask represents a request to render a thumbnail for a video that
// the file store could not preview.
type ThumbnailTask struct {
	VideoID  string `json:"video_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}
