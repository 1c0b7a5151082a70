package pictech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"image-translator-backend/internal/models"
)

const maxImageResponse = 32 << 20

type Options struct {
	BaseURL   string
	APIKey    string
	Secret    string
	AsyncMode bool

	HTTPClient     *http.Client
	Timeout        time.Duration
	InpaintTimeout time.Duration
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// Client issues signed calls to the PicTech image service. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	baseURL        string
	apiKey         string
	secret         string
	async          bool
	httpClient     *http.Client
	inpaintTimeout time.Duration
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	inpaintTimeout := opts.InpaintTimeout
	if inpaintTimeout <= 0 {
		inpaintTimeout = 60 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:        strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:         opts.APIKey,
		secret:         opts.Secret,
		async:          opts.AsyncMode,
		httpClient:     client,
		inpaintTimeout: inpaintTimeout,
		log:            log.WithField("component", "pictech"),
		now:            now,
	}
}

// SubmitTranslation starts a detect+translate task and returns its upstream id.
func (c *Client) SubmitTranslation(ctx context.Context, in TranslationInput) (string, error) {
	const op = "submit_task"
	payload := map[string]string{
		"SourceLanguage": in.SourceLanguage,
		"TargetLanguage": in.TargetLanguage,
	}
	switch {
	case in.ImageURL != "":
		payload["ImageUrl"] = in.ImageURL
	case in.ImageBase64 != "":
		payload["ImageBase64"] = stripDataURL(in.ImageBase64)
	default:
		return "", &Error{Kind: models.ErrUpstreamBusiness, Op: op, Message: "image url or base64 is required"}
	}

	body, err := c.postJSON(ctx, op, translationSubmitEndpoint, payload, 0)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &Error{Kind: models.ErrMalformedResponse, Op: op, Err: err}
	}
	if !resp.ok() {
		return "", &Error{Kind: models.ErrUpstreamBusiness, Op: op, Code: resp.Code, Message: truncate(resp.Message)}
	}
	id := resp.RequestID
	if id == "" && resp.Data != nil {
		id = resp.Data.RequestID
	}
	if id == "" {
		return "", &Error{Kind: models.ErrMalformedResponse, Op: op, Message: "RequestId is empty in response"}
	}
	return id, nil
}

// QueryTranslation fetches the current state of a translate task.
func (c *Client) QueryTranslation(ctx context.Context, taskID string) (*TranslationStatus, error) {
	const op = "query_result"
	body, err := c.postJSON(ctx, op, translationQueryEndpoint, map[string]string{"RequestId": taskID}, 0)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Err: err}
	}
	if !resp.ok() {
		return nil, &Error{Kind: models.ErrUpstreamBusiness, Op: op, Code: resp.Code, Message: truncate(resp.Message)}
	}
	if resp.Data == nil {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: "Data is missing in response"}
	}
	status, ok := parseStatus(resp.Data.Status)
	if !ok {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: fmt.Sprintf("unknown task status %q", truncate(resp.Data.Status))}
	}

	out := &TranslationStatus{Status: status, Message: truncate(resp.Data.ErrorMessage)}
	if status == models.StatusDone {
		out.Result = toResult(resp.Data.Regions)
	}
	return out, nil
}

// SubmitInpaint erases the white area of mask from image. In sync mode the
// returned ticket already carries the result image.
func (c *Client) SubmitInpaint(ctx context.Context, image, mask []byte) (*InpaintTicket, error) {
	payload := map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
		"mask":  base64.StdEncoding.EncodeToString(mask),
	}

	if !c.async {
		const op = "inpaint_image_sync"
		data, err := c.postForBytes(ctx, op, inpaintSyncEndpoint, payload)
		if err != nil {
			return nil, err
		}
		return &InpaintTicket{Image: data}, nil
	}

	const op = "submit_inpaint_task"
	body, err := c.postJSON(ctx, op, inpaintSubmitEndpoint, payload, c.inpaintTimeout)
	if err != nil {
		return nil, err
	}
	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Err: err}
	}
	if !resp.ok() {
		return nil, &Error{Kind: models.ErrUpstreamBusiness, Op: op, Code: resp.Code, Message: truncate(resp.Message)}
	}
	id := resp.RequestID
	if id == "" && resp.Data != nil {
		id = resp.Data.RequestID
	}
	if id == "" {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: "RequestId is empty in response"}
	}
	return &InpaintTicket{TaskID: id}, nil
}

// QueryInpaint fetches the state of an async inpaint task.
func (c *Client) QueryInpaint(ctx context.Context, taskID string) (*InpaintStatus, error) {
	const op = "query_inpaint_result"
	body, err := c.postJSON(ctx, op, inpaintQueryEndpoint, map[string]string{"RequestId": taskID}, 0)
	if err != nil {
		return nil, err
	}

	var resp inpaintQueryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Err: err}
	}
	if !resp.ok() {
		return nil, &Error{Kind: models.ErrUpstreamBusiness, Op: op, Code: resp.Code, Message: truncate(resp.Message)}
	}
	if resp.Data == nil {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: "Data is missing in response"}
	}
	status, ok := parseStatus(resp.Data.Status)
	if !ok {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: fmt.Sprintf("unknown task status %q", truncate(resp.Data.Status))}
	}

	out := &InpaintStatus{Status: status, Message: truncate(resp.Data.ErrorMessage)}
	if status == models.StatusDone {
		img, err := base64.StdEncoding.DecodeString(stripDataURL(resp.Data.ImageBase64))
		if err != nil || len(img) == 0 {
			return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: "result image is missing or not base64"}
		}
		out.Image = img
	}
	return out, nil
}

// signedBody adds AccountId, Timestamp and Signature to payload.
func (c *Client) signedBody(payload map[string]string) ([]byte, error) {
	params := make(map[string]string, len(payload)+3)
	for k, v := range payload {
		params[k] = v
	}
	params["AccountId"] = c.apiKey
	params["Timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
	params["Signature"] = Sign(params, c.secret)
	return json.Marshal(params)
}

func (c *Client) do(ctx context.Context, op, endpoint string, payload map[string]string, accept string) (*http.Response, error) {
	jsonData, err := c.signedBody(payload)
	if err != nil {
		return nil, &Error{Kind: models.ErrUpstreamBusiness, Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &Error{Kind: models.ErrUpstreamBusiness, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	c.log.WithField("endpoint", endpoint).Debug("sending pictech request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: models.ErrUpstreamTransient, Op: op, Err: scrub(err)}
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, op, endpoint string, payload map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := c.do(ctx, op, endpoint, payload, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageResponse))
	if err != nil {
		return nil, &Error{Kind: models.ErrUpstreamTransient, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(op, resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) postForBytes(ctx context.Context, op, endpoint string, payload map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.inpaintTimeout)
	defer cancel()

	resp, err := c.do(ctx, op, endpoint, payload, "*/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageResponse))
	if err != nil {
		return nil, &Error{Kind: models.ErrUpstreamTransient, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(op, resp.StatusCode, body)
	}

	// The sync endpoint answers errors with a JSON body and status 200.
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Err: err}
		}
		msg := env.Message
		if msg == "" {
			msg = "unknown API error"
		}
		return nil, &Error{Kind: models.ErrUpstreamBusiness, Op: op, Code: env.Code, Message: truncate(msg)}
	}
	if len(body) == 0 {
		return nil, &Error{Kind: models.ErrMalformedResponse, Op: op, Message: "API did not return image data"}
	}
	return body, nil
}

func (c *Client) statusError(op string, status int, body []byte) error {
	e := &Error{Kind: kindForStatus(status), Op: op, StatusCode: status}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		e.Code = env.Code
		e.Message = truncate(env.Message)
	}
	c.log.WithFields(logrus.Fields{"op": op, "status": status, "code": e.Code}).Warn("pictech request failed")
	return e
}

// scrub drops the request URL from transport errors.
func scrub(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func stripDataURL(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}
