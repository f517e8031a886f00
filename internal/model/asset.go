package model

// UploadRequest is a solution image in transport encoding (base64, optionally a data URL).
type UploadRequest struct {
	ImageData string `json:"imageData"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType,omitempty"`
}

// ImageAsset describes a stored solution image.
type ImageAsset struct {
	URL         string `json:"imageUrl"`
	ContentType string `json:"content_type"`
	StoragePath string `json:"storage_path"`
}
