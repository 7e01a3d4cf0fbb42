// Package network captures outbound HTTP traffic for inspection.
//
// An Interceptor sits between a caller and the code that performs the real
// call. For every call it snapshots the request, runs the call, snapshots the
// response and hands both records, tagged with one correlation id, to a
// reporter.Reporter. The snapshots never change what the caller observes:
// bodies are read once, cached, and handed back as fresh readers.
package network

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/reporter"
)

// Executor performs the actual call for a request.
type Executor func(req *http.Request) (*http.Response, error)

// Interceptor records request/response pairs and forwards them to a reporter.
// It holds no per-call state and is safe for concurrent use as long as the
// reporter is.
type Interceptor struct {
	reporter reporter.Reporter
	logger   logging.Logger
	cfg      Config
}

// NewInterceptor builds an Interceptor. A nil reporter turns it into a
// passthrough; a nil logger discards log output.
func NewInterceptor(rep reporter.Reporter, logger logging.Logger, cfg Config) *Interceptor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Interceptor{
		reporter: rep,
		logger:   logging.OrNop(logger).With(logging.Field{Key: "component", Value: "network"}),
		cfg:      cfg,
	}
}

// Intercept captures req, runs next, captures the response and returns it.
// Errors from next are returned unchanged and no response is reported.
// Failing to read a body never fails the call; it only degrades the record.
func (i *Interceptor) Intercept(req *http.Request, next Executor) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("network: nil request")
	}
	if next == nil {
		return nil, errors.New("network: nil executor")
	}
	if i.reporter == nil {
		return next(req)
	}

	id := i.cfg.NewID()
	i.reporter.ReportRequest(i.captureRequest(req, id))

	resp, err := next(req)
	if err != nil {
		i.logger.Debug("downstream call failed",
			logging.Field{Key: "id", Value: id},
			logging.Field{Key: "url", Value: req.URL.String()},
			logging.Err(err))
		return nil, err
	}

	info, out := i.captureResponse(resp, id)
	i.reporter.ReportResponse(info)
	return out, nil
}

// Transport wraps next so that every round trip goes through Intercept.
// A nil next uses http.DefaultTransport.
func (i *Interceptor) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{interceptor: i, next: next}
}

type transport struct {
	interceptor *Interceptor
	next        http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A RoundTripper must not modify the request; capturing replaces the body.
	if hasBody(req) && req.GetBody == nil {
		req = req.Clone(req.Context())
	}
	return t.interceptor.Intercept(req, t.next.RoundTrip)
}

func (i *Interceptor) captureRequest(req *http.Request, id string) model.RequestInfo {
	info := model.RequestInfo{
		RequestID: id,
		Timestamp: i.cfg.Now(),
		Method:    requestMethod(req),
		URL:       req.URL.String(),
		Headers:   model.FlattenHeaders(req.Header),
	}
	if req.Host != "" && req.Host != req.URL.Host {
		info.Headers = append([]model.Header{{Name: "Host", Value: req.Host}}, info.Headers...)
	}
	if hasBody(req) {
		info.Body = i.truncate(materializeRequestBody(req))
	}
	return info
}

// materializeRequestBody returns the full request body and leaves req with a
// body that can still be sent. When the body cannot be read the error text
// is returned instead and req replays the bytes read so far followed by the
// same error.
func materializeRequestBody(req *http.Request) []byte {
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return []byte(err.Error())
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return []byte(err.Error())
		}
		return b
	}

	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), errReader{err: err}))
		return []byte(err.Error())
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return b
}

// captureResponse reads the body once and returns the record together with
// the response the caller should see.
func (i *Interceptor) captureResponse(resp *http.Response, id string) (model.ResponseInfo, *http.Response) {
	info := model.ResponseInfo{
		RequestID:  id,
		Timestamp:  i.cfg.Now(),
		StatusCode: resp.StatusCode,
		Headers:    model.FlattenHeaders(resp.Header),
	}
	if resp.Body == nil {
		return info, resp
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	out := new(http.Response)
	*out = *resp
	if err != nil {
		i.logger.Error("reading response body",
			logging.Field{Key: "id", Value: id},
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Err(err))
		info.BodyError = err.Error()
		out.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errReader{err: err}))
		return info, out
	}

	info.Body = i.truncate(body)
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	return info, out
}

func (i *Interceptor) truncate(b []byte) []byte {
	if i.cfg.MaxCaptureBytes > 0 && len(b) > i.cfg.MaxCaptureBytes {
		return append([]byte(nil), b[:i.cfg.MaxCaptureBytes]...)
	}
	return b
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func requestMethod(req *http.Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}

// errReader fails every read with err.
type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}
