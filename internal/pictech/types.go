package pictech

import (
	"strings"

	"image-translator-backend/internal/models"
)

const (
	translationSubmitEndpoint = "/submit_task"
	translationQueryEndpoint  = "/query_result"
	inpaintSyncEndpoint       = "/inpaint_image_sync"
	inpaintSubmitEndpoint     = "/submit_inpaint_task"
	inpaintQueryEndpoint      = "/query_inpaint_result"
)

// TranslationInput selects the image by URL or by raw base64 (no data: prefix).
type TranslationInput struct {
	ImageURL       string
	ImageBase64    string
	SourceLanguage string
	TargetLanguage string
}

// TranslationStatus is a normalized query_result response.
type TranslationStatus struct {
	Status  models.JobStatus
	Result  *models.TranslationResult
	Message string
}

// InpaintTicket is returned by SubmitInpaint. In sync mode Image holds the
// finished picture and TaskID is empty.
type InpaintTicket struct {
	TaskID string
	Image  []byte
}

// InpaintStatus is a normalized query_inpaint_result response.
type InpaintStatus struct {
	Status  models.JobStatus
	Image   []byte
	Message string
}

type envelope struct {
	Code      int    `json:"Code"`
	Message   string `json:"Message"`
	RequestID string `json:"RequestId"`
}

func (e envelope) ok() bool {
	return e.Code == 0 || e.Code == 200
}

type submitResponse struct {
	envelope
	Data *struct {
		RequestID string `json:"RequestId"`
	} `json:"Data"`
}

type regionOut struct {
	BoundingBox struct {
		X      int `json:"X"`
		Y      int `json:"Y"`
		Width  int `json:"Width"`
		Height int `json:"Height"`
	} `json:"BoundingBox"`
	SourceText string  `json:"SourceText"`
	TargetText string  `json:"TargetText"`
	Confidence float64 `json:"Confidence"`
}

type queryResponse struct {
	envelope
	Data *struct {
		Status       string      `json:"Status"`
		Regions      []regionOut `json:"Regions"`
		ErrorMessage string      `json:"ErrorMessage"`
	} `json:"Data"`
}

type inpaintQueryResponse struct {
	envelope
	Data *struct {
		Status       string `json:"Status"`
		ImageBase64  string `json:"ImageBase64"`
		ErrorMessage string `json:"ErrorMessage"`
	} `json:"Data"`
}

// parseStatus maps upstream status words onto the job lifecycle.
func parseStatus(s string) (models.JobStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING", "QUEUED", "WAITING", "SUBMITTED":
		return models.StatusPending, true
	case "PROCESSING", "RUNNING", "IN_PROGRESS":
		return models.StatusProcessing, true
	case "SUCCESS", "SUCCEEDED", "DONE", "FINISHED", "COMPLETED":
		return models.StatusDone, true
	case "FAILED", "FAILURE", "ERROR":
		return models.StatusFailed, true
	}
	return "", false
}

func toResult(regions []regionOut) *models.TranslationResult {
	out := &models.TranslationResult{Regions: make([]models.TextRegion, 0, len(regions))}
	for _, r := range regions {
		out.Regions = append(out.Regions, models.TextRegion{
			BoundingBox: models.Rect{
				X:      r.BoundingBox.X,
				Y:      r.BoundingBox.Y,
				Width:  r.BoundingBox.Width,
				Height: r.BoundingBox.Height,
			},
			SourceText:     r.SourceText,
			TranslatedText: r.TargetText,
			Confidence:     r.Confidence,
		})
	}
	return out
}
