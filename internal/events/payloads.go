package events

import (
	"time"

	"image-translator-backend/internal/models"
)

func ForTranslation(req *models.TranslationRequest) Event {
	e := Event{
		RequestID: req.ID,
		Status:    string(req.Status),
		Time:      time.Now().UTC(),
	}
	switch req.Status {
	case models.StatusDone:
		e.Type = TranslationDone
	case models.StatusFailed:
		e.Type = TranslationFailed
		if req.Error != nil {
			e.ErrorKind = req.Error.Kind
		}
	default:
		e.Type = TranslationSubmitted
	}
	return e
}

func ForErase(job *models.EraseJob) Event {
	e := Event{
		RequestID: job.RequestID,
		JobID:     job.ID,
		Status:    string(job.Status),
		FileRef:   job.ResultImageRef,
		Time:      time.Now().UTC(),
	}
	switch job.Status {
	case models.StatusDone:
		e.Type = EraseDone
	case models.StatusFailed:
		e.Type = EraseFailed
		if job.Error != nil {
			e.ErrorKind = job.Error.Kind
		}
	default:
		e.Type = EraseSubmitted
	}
	return e
}
