package models

type URLTranslationRequest struct {
	ImageURL       string `json:"imageUrl" binding:"required"`
	SourceLanguage string `json:"sourceLanguage" binding:"required"`
	TargetLanguage string `json:"targetLanguage" binding:"required"`
}

type Base64TranslationRequest struct {
	ImageBase64    string `json:"imageBase64" binding:"required"`
	SourceLanguage string `json:"sourceLanguage" binding:"required"`
	TargetLanguage string `json:"targetLanguage" binding:"required"`
}

// EraseRequest submits an inpainting job. JobID is an optional client
// idempotency key; retries with the same JobID are never charged twice.
// ImageBase64 is the client's current canvas image; when empty the request's
// original upload is used.
type EraseRequest struct {
	RequestID   string `json:"requestId" binding:"required"`
	JobID       string `json:"jobId,omitempty"`
	Region      []Rect `json:"region,omitempty"`
	MaskBase64  string `json:"maskBase64,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// InpaintRequest is the image+mask form used by the canvas eraser tool.
type InpaintRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	JobID     string `json:"jobId,omitempty"`
	Image     string `json:"image" binding:"required"`
	Mask      string `json:"mask" binding:"required"`
}

type UploadInpaintImageRequest struct {
	JobID     string `json:"jobId" binding:"required"`
	ImageData string `json:"imageData" binding:"required"`
}

type UploadExportedImageRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	Filename    string `json:"filename,omitempty"`
	ImageBase64 string `json:"imageBase64" binding:"required"`
}

type CreateSessionRequest struct {
	BaseImageRef string `json:"baseImageRef" binding:"required"`
	RequestID    string `json:"requestId,omitempty"`
}

type SaveSessionRequest struct {
	SessionID  string      `json:"sessionId"`
	Operations []Operation `json:"operations"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
