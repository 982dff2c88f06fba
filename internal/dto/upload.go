package dto

import "io"

// Upload is a single multipart file as received from the client.
// Size is the client-declared size; the reader is the source of truth.
type Upload struct {
	OriginalName string
	ContentType  string
	Size         int64
	Data         io.Reader
}
