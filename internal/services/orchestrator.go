// Package services sequences calls to the PicTech service and keeps request,
// erase job, credit and file state consistent across them.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"image-translator-backend/internal/events"
	"image-translator-backend/internal/filestore"
	"image-translator-backend/internal/imageutil"
	"image-translator-backend/internal/ledger"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/pictech"
)

const refreshTimeout = 2 * time.Minute

// Adapter is the upstream image service.
type Adapter interface {
	SubmitTranslation(ctx context.Context, in pictech.TranslationInput) (string, error)
	QueryTranslation(ctx context.Context, taskID string) (*pictech.TranslationStatus, error)
	SubmitInpaint(ctx context.Context, image, mask []byte) (*pictech.InpaintTicket, error)
	QueryInpaint(ctx context.Context, taskID string) (*pictech.InpaintStatus, error)
}

// Repository stores translation requests and erase jobs. Update calls are
// compare-and-set on the previous status and fail with models.ErrConflict
// when it no longer matches.
type Repository interface {
	CreateTranslation(ctx context.Context, req *models.TranslationRequest) error
	GetTranslation(ctx context.Context, id string) (*models.TranslationRequest, error)
	UpdateTranslation(ctx context.Context, req *models.TranslationRequest, from models.JobStatus) error
	CreateErase(ctx context.Context, job *models.EraseJob) error
	GetErase(ctx context.Context, id string) (*models.EraseJob, error)
	UpdateErase(ctx context.Context, job *models.EraseJob, from models.JobStatus) error
}

// SessionStore is the part of the canvas session store exports need.
type SessionStore interface {
	Snapshot(ctx context.Context, id string) (*models.CanvasSession, error)
	AddExport(ctx context.Context, id, ref string) (*models.CanvasSession, error)
}

type Options struct {
	Adapter  Adapter
	Repo     Repository
	Files    filestore.Store
	Ledger   ledger.Ledger
	Sessions SessionStore
	Events   events.Publisher
	Fetcher  *imageutil.Fetcher
	Log      logrus.FieldLogger

	PollAttempts  int
	PollBaseDelay time.Duration
}

type Orchestrator struct {
	adapter  Adapter
	repo     Repository
	files    filestore.Store
	ledger   ledger.Ledger
	sessions SessionStore
	events   events.Publisher
	fetcher  *imageutil.Fetcher
	log      logrus.FieldLogger
	retry    *Retrier
	now      func() time.Time

	translations singleflight.Group
	erases       singleflight.Group
	submits      singleflight.Group

	authFailed atomic.Bool
}

func NewOrchestrator(opts Options) *Orchestrator {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	pub := opts.Events
	if pub == nil {
		pub = events.NewLogPublisher(log)
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = imageutil.NewFetcher(nil, 0)
	}
	return &Orchestrator{
		adapter:  opts.Adapter,
		repo:     opts.Repo,
		files:    opts.Files,
		ledger:   opts.Ledger,
		sessions: opts.Sessions,
		events:   pub,
		fetcher:  fetcher,
		log:      log.WithField("component", "orchestrator"),
		retry:    NewRetrier(opts.PollAttempts, opts.PollBaseDelay),
		now:      time.Now,
	}
}

// Healthy returns models.ErrAuth once the upstream has rejected our
// credentials. The condition lasts until restart.
func (o *Orchestrator) Healthy() error {
	if o.authFailed.Load() {
		return fmt.Errorf("%w: upstream credentials were rejected, check PICOTECH_API_KEY and PICOTECH_SECRET", models.ErrAuth)
	}
	return nil
}

func (o *Orchestrator) noteUpstreamError(err error) {
	if errors.Is(err, models.ErrAuth) && o.authFailed.CompareAndSwap(false, true) {
		o.log.WithError(err).Error("upstream authentication failed, refusing further upstream calls")
	}
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if err := o.events.Publish(ctx, e); err != nil {
		o.log.WithError(err).WithField("event", e.Type).Warn("failed to publish job event")
	}
}

// detached keeps a shared refresh alive when the caller that started it
// stops waiting.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
}

// owned hides records of other accounts behind models.ErrNotFound.
func owned(owner, accountKey, what, id string) error {
	if owner != accountKey {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, what, id)
	}
	return nil
}

func failure(kind string, err error) *models.ErrorInfo {
	return &models.ErrorInfo{Kind: kind, Message: err.Error()}
}
