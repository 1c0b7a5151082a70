package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"image-translator-backend/internal/events"
	"image-translator-backend/internal/imageutil"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/pictech"
)

// SubmitEraseInput describes one inpainting call. JobID is an optional client
// key that makes retries safe: a known JobID returns the existing job and is
// never charged again. Image is the client's current canvas; when empty the
// request's original upload is used.
type SubmitEraseInput struct {
	AccountKey string
	RequestID  string
	JobID      string
	Region     models.RegionMask
	Image      []byte
}

// SubmitErase charges one credit and starts an inpainting job. The credit is
// held before the upstream call, released if the call fails and committed
// once it is accepted.
func (o *Orchestrator) SubmitErase(ctx context.Context, in SubmitEraseInput) (*models.EraseJob, error) {
	if in.RequestID == "" {
		return nil, fmt.Errorf("%w: requestId is required", models.ErrInvalidInput)
	}
	if in.Region.Empty() {
		return nil, fmt.Errorf("%w: region is empty", models.ErrInvalidInput)
	}
	req, err := o.repo.GetTranslation(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if err := owned(req.AccountKey, in.AccountKey, "translation request", in.RequestID); err != nil {
		return nil, err
	}

	if in.JobID == "" {
		return o.submitErase(ctx, req, uuid.New().String(), in)
	}
	if job, err := o.existingErase(ctx, in); job != nil || err != nil {
		return job, err
	}

	// Job ids are global, so concurrent submits of one id share a single call
	// and every waiter re-checks that the job is its own.
	ch := o.submits.DoChan(in.JobID, func() (interface{}, error) {
		sctx, cancel := detached(ctx)
		defer cancel()
		if job, err := o.existingErase(sctx, in); job != nil || err != nil {
			return job, err
		}
		return o.submitErase(sctx, req, in.JobID, in)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		job := res.Val.(*models.EraseJob)
		if job.AccountKey != in.AccountKey || job.RequestID != in.RequestID {
			return nil, fmt.Errorf("%w: erase job %s belongs to another request", models.ErrConflict, in.JobID)
		}
		return job.Clone(), nil
	}
}

func (o *Orchestrator) existingErase(ctx context.Context, in SubmitEraseInput) (*models.EraseJob, error) {
	job, err := o.repo.GetErase(ctx, in.JobID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if job.AccountKey != in.AccountKey || job.RequestID != in.RequestID {
		return nil, fmt.Errorf("%w: erase job %s belongs to another request", models.ErrConflict, in.JobID)
	}
	return job, nil
}

func (o *Orchestrator) submitErase(ctx context.Context, req *models.TranslationRequest, jobID string, in SubmitEraseInput) (*models.EraseJob, error) {
	log := o.log.WithFields(logrus.Fields{"request_id": req.ID, "job_id": jobID})

	image, mask, err := o.eraseInputs(ctx, req, in)
	if err != nil {
		return nil, err
	}
	if err := o.Healthy(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamSubmit, err)
	}

	token, err := o.ledger.Authorize(ctx, in.AccountKey, jobID)
	if err != nil {
		return nil, err
	}
	if token.Replayed {
		// Held or charged by a submit that has not recorded its job yet.
		if job, err := o.existingErase(ctx, SubmitEraseInput{AccountKey: in.AccountKey, RequestID: req.ID, JobID: jobID}); job != nil || err != nil {
			return job, err
		}
		return nil, fmt.Errorf("%w: erase job %s is already being submitted", models.ErrConflict, jobID)
	}

	ticket, err := o.adapter.SubmitInpaint(ctx, image, mask)
	if err != nil {
		o.noteUpstreamError(err)
		if rerr := o.ledger.Release(context.WithoutCancel(ctx), token); rerr != nil {
			log.WithError(rerr).Error("failed to release credit hold")
		}
		log.WithError(err).Warn("erase submit failed")
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamSubmit, err)
	}
	if err := o.ledger.Commit(context.WithoutCancel(ctx), token); err != nil {
		log.WithError(err).Error("failed to commit credit hold")
	}

	now := o.now().UTC()
	job := &models.EraseJob{
		ID:             jobID,
		RequestID:      req.ID,
		AccountKey:     in.AccountKey,
		Region:         models.RegionMask{Rects: in.Region.Rects},
		UpstreamTaskID: ticket.TaskID,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(ticket.Image) > 0 {
		stored, err := o.files.Put(ctx, models.FileEraseResult, jobID, ticket.Image)
		if err != nil {
			log.WithError(err).Error("failed to store erase result")
			job.Status = models.StatusFailed
			job.Error = failure(models.KindStorage, err)
		} else {
			job.Status = models.StatusDone
			job.ResultImageRef = stored.Ref
		}
	}

	if err := o.repo.CreateErase(context.WithoutCancel(ctx), job); err != nil {
		return nil, fmt.Errorf("failed to create erase job: %w", err)
	}

	log.WithField("status", job.Status).Info("erase submitted")
	o.publish(ctx, events.ForErase(job))
	return job, nil
}

// eraseInputs resolves the source image and the mask sent upstream.
func (o *Orchestrator) eraseInputs(ctx context.Context, req *models.TranslationRequest, in SubmitEraseInput) ([]byte, []byte, error) {
	image := in.Image
	if len(image) == 0 {
		data, _, err := o.files.Get(ctx, req.SourceImageRef)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load original image: %w", err)
		}
		image = data
	}
	if _, _, err := imageutil.Detect(image); err != nil {
		return nil, nil, err
	}

	if len(in.Region.MaskImage) > 0 {
		if _, _, err := imageutil.Detect(in.Region.MaskImage); err != nil {
			return nil, nil, fmt.Errorf("mask: %w", err)
		}
		return image, in.Region.MaskImage, nil
	}
	mask, err := imageutil.MaskForImage(image, in.Region.Rects)
	if err != nil {
		return nil, nil, err
	}
	return image, mask, nil
}

// PollErase has the same contract as PollTranslation. A finished async job
// gets its image stored before the job is marked done.
func (o *Orchestrator) PollErase(ctx context.Context, accountKey, id string) (*models.EraseJob, error) {
	job, err := o.repo.GetErase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := owned(job.AccountKey, accountKey, "erase job", id); err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	ch := o.erases.DoChan(id, func() (interface{}, error) {
		rctx, cancel := detached(ctx)
		defer cancel()
		return o.refreshErase(rctx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.EraseJob).Clone(), nil
	}
}

func (o *Orchestrator) refreshErase(ctx context.Context, id string) (*models.EraseJob, error) {
	job, err := o.repo.GetErase(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	if err := o.Healthy(); err != nil {
		return nil, err
	}

	var st *pictech.InpaintStatus
	err = o.retry.Do(ctx, func(ctx context.Context) error {
		var qerr error
		st, qerr = o.adapter.QueryInpaint(ctx, job.UpstreamTaskID)
		return qerr
	}, pictech.Retryable)

	next := job.Clone()
	next.UpdatedAt = o.now().UTC()
	switch {
	case err == nil:
		if !job.Status.CanTransitionTo(st.Status) || st.Status == job.Status {
			return job, nil
		}
		next.Status = st.Status
		switch st.Status {
		case models.StatusDone:
			stored, err := o.files.Put(ctx, models.FileEraseResult, job.ID, st.Image)
			if err != nil {
				return nil, fmt.Errorf("failed to store erase result: %w", err)
			}
			next.ResultImageRef = stored.Ref
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

	if err := o.repo.UpdateErase(ctx, next, job.Status); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return o.repo.GetErase(ctx, id)
		}
		return nil, fmt.Errorf("failed to update erase job: %w", err)
	}

	o.log.WithFields(logrus.Fields{"job_id": id, "status": next.Status}).Info("erase status changed")
	if next.Status.IsTerminal() {
		o.publish(ctx, events.ForErase(next))
	}
	return next, nil
}
