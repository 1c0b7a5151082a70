package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-translator-backend/internal/models"
	"image-translator-backend/internal/pictech"
	"image-translator-backend/internal/services"
)

func eraseInput(req *models.TranslationRequest) services.SubmitEraseInput {
	return services.SubmitEraseInput{
		AccountKey: "acct",
		RequestID:  req.ID,
		Region:     models.RegionMask{Rects: []models.Rect{{X: 2, Y: 2, Width: 8, Height: 4}}},
	}
}

func TestSubmitErase_ConcurrentSubmitsWithOneCredit(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 1)
	req := f.submit(t)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.SubmitErase(t.Context(), eraseInput(req))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, models.ErrInsufficientCredits):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	acc, err := f.ledger.Balance(t.Context(), "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Len(t, acc.History, 1)

	_, _, inpaints := f.adapter.counts()
	assert.Equal(t, 1, inpaints)
}

func TestSubmitErase_NoCreditsNoUpstreamCall(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 0)
	req := f.submit(t)

	_, err := f.orch.SubmitErase(t.Context(), eraseInput(req))
	assert.ErrorIs(t, err, models.ErrInsufficientCredits)

	_, _, inpaints := f.adapter.counts()
	assert.Zero(t, inpaints)
}

func TestSubmitErase_UpstreamFailureReleasesCredit(t *testing.T) {
	adapter := &stubAdapter{inpaintErr: &pictech.Error{Kind: models.ErrUpstreamTransient, Op: "inpaint_image_sync", StatusCode: 503}}
	f := newFixture(t, adapter, 1)
	req := f.submit(t)

	_, err := f.orch.SubmitErase(t.Context(), eraseInput(req))
	assert.ErrorIs(t, err, models.ErrUpstreamSubmit)
	assert.ErrorIs(t, err, models.ErrUpstreamTransient)

	acc, err := f.ledger.Balance(t.Context(), "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Balance)
	assert.Zero(t, acc.Held)
	assert.Empty(t, acc.History)
}

func TestSubmitErase_SameJobIDChargedOnce(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 5)
	req := f.submit(t)

	in := eraseInput(req)
	in.JobID = "client-job-1"
	first, err := f.orch.SubmitErase(t.Context(), in)
	require.NoError(t, err)
	second, err := f.orch.SubmitErase(t.Context(), in)
	require.NoError(t, err)

	assert.Equal(t, "client-job-1", first.ID)
	assert.Equal(t, first.ID, second.ID)

	acc, err := f.ledger.Balance(t.Context(), "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(4), acc.Balance)
	_, _, inpaints := f.adapter.counts()
	assert.Equal(t, 1, inpaints)

	otherReq := f.submitAs(t, "someone-else")
	other := eraseInput(otherReq)
	other.AccountKey = "someone-else"
	other.JobID = in.JobID
	_, err = f.orch.SubmitErase(t.Context(), other)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSubmitErase_ConcurrentSameJobIDFromOtherAccount(t *testing.T) {
	adapter := &stubAdapter{inpaintGate: make(chan struct{})}
	f := newFixture(t, adapter, 5)
	reqA := f.submitAs(t, "acct-a")
	reqB := f.submitAs(t, "acct-b")

	inA := eraseInput(reqA)
	inA.AccountKey, inA.JobID = "acct-a", "shared"
	inB := eraseInput(reqB)
	inB.AccountKey, inB.JobID = "acct-b", "shared"

	var (
		wg   sync.WaitGroup
		jobA *models.EraseJob
		errA error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		jobA, errA = f.orch.SubmitErase(t.Context(), inA)
	}()
	require.Eventually(t, func() bool {
		_, _, inpaints := adapter.counts()
		return inpaints == 1
	}, time.Second, time.Millisecond)

	var errB error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errB = f.orch.SubmitErase(t.Context(), inB)
	}()
	time.Sleep(20 * time.Millisecond)
	close(adapter.inpaintGate)
	wg.Wait()

	require.NoError(t, errA)
	assert.Equal(t, reqA.ID, jobA.RequestID)
	assert.ErrorIs(t, errB, models.ErrConflict)

	accB, err := f.ledger.Balance(t.Context(), "acct-b")
	require.NoError(t, err)
	assert.Equal(t, int64(5), accB.Balance)
	assert.Zero(t, accB.Held)
	_, _, inpaints := adapter.counts()
	assert.Equal(t, 1, inpaints)
}

func TestErase_OtherAccountNotFound(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 5)
	req := f.submit(t)
	job, err := f.orch.SubmitErase(t.Context(), eraseInput(req))
	require.NoError(t, err)

	in := eraseInput(req)
	in.AccountKey = "someone-else"
	_, err = f.orch.SubmitErase(t.Context(), in)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.orch.PollErase(t.Context(), "someone-else", job.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.orch.StoreEraseResult(t.Context(), "someone-else", job.ID, testPNG(t))
	assert.ErrorIs(t, err, models.ErrNotFound)

	acc, err := f.ledger.Balance(t.Context(), "someone-else")
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.Balance)
	_, _, inpaints := f.adapter.counts()
	assert.Equal(t, 1, inpaints)
}

func TestSubmitErase_Validation(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 5)
	req := f.submit(t)

	_, err := f.orch.SubmitErase(t.Context(), services.SubmitEraseInput{AccountKey: "acct", RequestID: "missing", Region: eraseInput(req).Region})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.orch.SubmitErase(t.Context(), services.SubmitEraseInput{AccountKey: "acct", RequestID: req.ID})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	outside := eraseInput(req)
	outside.Region.Rects = []models.Rect{{X: 500, Y: 500, Width: 5, Height: 5}}
	_, err = f.orch.SubmitErase(t.Context(), outside)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	acc, err := f.ledger.Balance(t.Context(), "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(5), acc.Balance)
}

func TestSubmitErase_SyncResultStored(t *testing.T) {
	result := testPNG(t)
	f := newFixture(t, &stubAdapter{inpaint: &pictech.InpaintTicket{Image: result}}, 1)
	req := f.submit(t)

	in := eraseInput(req)
	in.Image = testPNG(t)
	job, err := f.orch.SubmitErase(t.Context(), in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, job.Status)
	require.NotEmpty(t, job.ResultImageRef)

	data, meta, err := f.orch.GetFile(t.Context(), job.ResultImageRef)
	require.NoError(t, err)
	assert.Equal(t, result, data)
	assert.Equal(t, models.FileEraseResult, meta.Kind)
	assert.Equal(t, job.ID, meta.Owner)

	polled, err := f.orch.PollErase(t.Context(), "acct", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ResultImageRef, polled.ResultImageRef)
}

func TestPollErase_Async(t *testing.T) {
	result := testPNG(t)
	adapter := &stubAdapter{inpaintPolls: []inpaintStep{
		{status: &pictech.InpaintStatus{Status: models.StatusProcessing}},
		{err: &pictech.Error{Kind: models.ErrRateLimited, Op: "query_inpaint_result", StatusCode: 429}},
		{status: &pictech.InpaintStatus{Status: models.StatusDone, Image: result}},
	}}
	f := newFixture(t, adapter, 1)
	req := f.submit(t)

	job, err := f.orch.SubmitErase(t.Context(), eraseInput(req))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, job.Status)

	job, err = f.orch.PollErase(t.Context(), "acct", job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, job.Status)

	job, err = f.orch.PollErase(t.Context(), "acct", job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, job.Status)

	data, _, err := f.orch.GetFile(t.Context(), job.ResultImageRef)
	require.NoError(t, err)
	assert.Equal(t, result, data)
}

func TestStoreEraseResult_WritesRevisions(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 1)
	req := f.submit(t)
	job, err := f.orch.SubmitErase(t.Context(), eraseInput(req))
	require.NoError(t, err)

	first, err := f.orch.StoreEraseResult(t.Context(), "acct", job.ID, testPNG(t))
	require.NoError(t, err)
	second, err := f.orch.StoreEraseResult(t.Context(), "acct", job.ID, testPNG(t))
	require.NoError(t, err)
	assert.NotEqual(t, first.Ref, second.Ref)

	_, _, err = f.orch.GetFile(t.Context(), first.Ref)
	assert.NoError(t, err)

	_, err = f.orch.StoreEraseResult(t.Context(), "acct", "missing", testPNG(t))
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.orch.StoreEraseResult(t.Context(), "acct", job.ID, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestStoreExport_SurvivesReset(t *testing.T) {
	f := newFixture(t, &stubAdapter{}, 1)
	req := f.submit(t)

	sess, err := f.sessions.Create(t.Context(), req.SourceImageRef, req.ID)
	require.NoError(t, err)
	_, err = f.sessions.Push(t.Context(), sess.ID, models.Operation{Type: models.OpAddText, Text: &models.TextLayer{Text: "Hello"}})
	require.NoError(t, err)

	export, err := f.orch.StoreExport(t.Context(), sess.ID, testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, models.FileExport, export.Kind)

	sess, err = f.sessions.Reset(t.Context(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, sess.LayerStack)
	assert.Zero(t, sess.UndoPointer)
	assert.Equal(t, []string{export.Ref}, sess.Exports)

	_, _, err = f.orch.GetFile(t.Context(), export.Ref)
	assert.NoError(t, err)

	_, err = f.orch.StoreExport(t.Context(), "missing", testPNG(t))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
