package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"image-translator-backend/internal/events"
	"image-translator-backend/internal/imageutil"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/pictech"
)

// SubmitTranslationInput carries either Image bytes or an ImageURL.
type SubmitTranslationInput struct {
	AccountKey     string
	Image          []byte
	ImageURL       string
	SourceLanguage string
	TargetLanguage string
}

// SubmitTranslation stores the original image, starts the upstream task and
// returns the new pending request. Nothing is recorded when the upstream
// submit fails.
func (o *Orchestrator) SubmitTranslation(ctx context.Context, in SubmitTranslationInput) (*models.TranslationRequest, error) {
	in.SourceLanguage = strings.TrimSpace(in.SourceLanguage)
	in.TargetLanguage = strings.TrimSpace(in.TargetLanguage)
	if in.SourceLanguage == "" || in.TargetLanguage == "" {
		return nil, fmt.Errorf("%w: source and target language are required", models.ErrInvalidInput)
	}

	data := in.Image
	if len(data) == 0 && in.ImageURL != "" {
		fetched, err := o.fetcher.Fetch(ctx, in.ImageURL)
		if err != nil {
			return nil, err
		}
		data = fetched
	} else {
		in.ImageURL = ""
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", models.ErrInvalidInput)
	}
	if _, _, err := imageutil.Detect(data); err != nil {
		return nil, err
	}

	if err := o.Healthy(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamSubmit, err)
	}

	id := uuid.New().String()
	stored, err := o.files.Put(ctx, models.FileOriginal, id, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store original image: %w", err)
	}

	input := pictech.TranslationInput{
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: in.TargetLanguage,
	}
	if in.ImageURL != "" {
		input.ImageURL = in.ImageURL
	} else {
		input.ImageBase64 = base64.StdEncoding.EncodeToString(data)
	}

	taskID, err := o.adapter.SubmitTranslation(ctx, input)
	if err != nil {
		o.noteUpstreamError(err)
		o.log.WithError(err).WithField("request_id", id).Warn("translation submit failed")
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamSubmit, err)
	}

	now := o.now().UTC()
	req := &models.TranslationRequest{
		ID:             id,
		AccountKey:     in.AccountKey,
		SourceImageRef: stored.Ref,
		SourceURL:      in.ImageURL,
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: in.TargetLanguage,
		UpstreamTaskID: taskID,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.repo.CreateTranslation(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create translation request: %w", err)
	}

	o.log.WithFields(logrus.Fields{"request_id": id, "task_id": taskID}).Info("translation submitted")
	o.publish(ctx, events.ForTranslation(req))
	return req, nil
}

// PollTranslation returns the current state of a request, asking upstream
// only while the request is not terminal. Concurrent polls of one id share a
// single upstream refresh. Requests of other accounts are reported as not
// found.
func (o *Orchestrator) PollTranslation(ctx context.Context, accountKey, id string) (*models.TranslationRequest, error) {
	req, err := o.repo.GetTranslation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owned(req.AccountKey, accountKey, "translation request", id); err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return req, nil
	}

	ch := o.translations.DoChan(id, func() (interface{}, error) {
		rctx, cancel := detached(ctx)
		defer cancel()
		return o.refreshTranslation(rctx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.TranslationRequest).Clone(), nil
	}
}

func (o *Orchestrator) refreshTranslation(ctx context.Context, id string) (*models.TranslationRequest, error) {
	req, err := o.repo.GetTranslation(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return req, nil
	}
	if err := o.Healthy(); err != nil {
		return nil, err
	}

	var st *pictech.TranslationStatus
	err = o.retry.Do(ctx, func(ctx context.Context) error {
		var qerr error
		st, qerr = o.adapter.QueryTranslation(ctx, req.UpstreamTaskID)
		return qerr
	}, pictech.Retryable)

	next := req.Clone()
	next.UpdatedAt = o.now().UTC()
	switch {
	case err == nil:
		if !req.Status.CanTransitionTo(st.Status) || st.Status == req.Status {
			return req, nil
		}
		next.Status = st.Status
		switch st.Status {
		case models.StatusDone:
			next.Result = st.Result
			if next.Result == nil {
				next.Result = &models.TranslationResult{Regions: []models.TextRegion{}}
			}
		case models.StatusFailed:
			next.Error = upstreamFailure(st.Message)
		}
	case errors.Is(err, models.ErrAuth):
		o.noteUpstreamError(err)
		return nil, err
	case ctx.Err() != nil:
		// The refresh itself was abandoned; an upstream timeout is retryable instead.
		return nil, err
	case pictech.Retryable(err):
		next.Status = models.StatusFailed
		next.Error = failure(models.KindUpstreamTransient, err)
	default:
		next.Status = models.StatusFailed
		next.Error = failure(permanentKind(err), err)
	}

	if err := o.repo.UpdateTranslation(ctx, next, req.Status); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return o.repo.GetTranslation(ctx, id)
		}
		return nil, fmt.Errorf("failed to update translation request: %w", err)
	}

	entry := o.log.WithFields(logrus.Fields{"request_id": id, "status": next.Status})
	if next.Error != nil {
		entry = entry.WithField("error_kind", next.Error.Kind)
	}
	entry.Info("translation status changed")
	if next.Status.IsTerminal() {
		o.publish(ctx, events.ForTranslation(next))
	}
	return next, nil
}

func permanentKind(err error) string {
	if kind := models.ErrorKind(err); kind != "" {
		return kind
	}
	return models.KindUpstreamBusiness
}

func upstreamFailure(msg string) *models.ErrorInfo {
	if msg == "" {
		msg = "upstream task failed"
	}
	return &models.ErrorInfo{Kind: models.KindUpstreamBusiness, Message: msg}
}
