package models

import "time"

// Rect is an axis-aligned box in image pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rect covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// TextRegion is one detected and translated block of text.
type TextRegion struct {
	BoundingBox    Rect    `json:"boundingBox"`
	SourceText     string  `json:"sourceText"`
	TranslatedText string  `json:"translatedText"`
	Confidence     float64 `json:"confidence"`
}

// TranslationResult is produced once per request and never edited in place.
type TranslationResult struct {
	Regions []TextRegion `json:"regions"`
}

// ErrorInfo records why a request or job ended in the failed state.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type TranslationRequest struct {
	ID             string             `json:"requestId"`
	AccountKey     string             `json:"-"`
	SourceImageRef string             `json:"sourceImageRef"`
	SourceURL      string             `json:"sourceUrl,omitempty"`
	SourceLanguage string             `json:"sourceLanguage"`
	TargetLanguage string             `json:"targetLanguage"`
	UpstreamTaskID string             `json:"-"`
	Status         JobStatus          `json:"status"`
	Result         *TranslationResult `json:"result,omitempty"`
	Error          *ErrorInfo         `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (r *TranslationRequest) Clone() *TranslationRequest {
	if r == nil {
		return nil
	}
	out := *r
	if r.Result != nil {
		res := TranslationResult{Regions: append([]TextRegion(nil), r.Result.Regions...)}
		out.Result = &res
	}
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	return &out
}
