package server

import (
	"encoding/base64"
	"net/http"

	"github.com/simaofelgueirasJM/flipper/internal/model"
)

// OverlayRequest asks for content-box guides rendered on a width x height surface.
type OverlayRequest struct {
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Density float64    `json:"density"`
	Margin  model.Rect `json:"margin"`
	Padding model.Rect `json:"padding"`
	Content model.Rect `json:"content"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Message is one frame on the /ws/network stream.
type Message struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

const (
	MethodNewRequest  = "newRequest"
	MethodNewResponse = "newResponse"
)

// WireHeader is the header shape used on the stream.
type WireHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RequestParams carries a captured request on the stream. Data is base64.
type RequestParams struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"`
	Method    string       `json:"method"`
	URL       string       `json:"url"`
	Headers   []WireHeader `json:"headers"`
	Data      string       `json:"data,omitempty"`
}

// ResponseParams carries a captured response on the stream. Data is base64.
type ResponseParams struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"`
	Status    int          `json:"status"`
	Reason    string       `json:"reason"`
	Headers   []WireHeader `json:"headers"`
	Data      string       `json:"data,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func wireHeaders(headers []model.Header) []WireHeader {
	out := make([]WireHeader, len(headers))
	for i, h := range headers {
		out[i] = WireHeader{Key: h.Name, Value: h.Value}
	}
	return out
}

func encodeData(b []byte) string {
	if b == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func newRequestMessage(req model.RequestInfo) Message {
	return Message{Method: MethodNewRequest, Params: RequestParams{
		ID:        req.RequestID,
		Timestamp: req.Timestamp.UnixMilli(),
		Method:    req.Method,
		URL:       req.URL,
		Headers:   wireHeaders(req.Headers),
		Data:      encodeData(req.Body),
	}}
}

func newResponseMessage(resp model.ResponseInfo) Message {
	return Message{Method: MethodNewResponse, Params: ResponseParams{
		ID:        resp.RequestID,
		Timestamp: resp.Timestamp.UnixMilli(),
		Status:    resp.StatusCode,
		Reason:    http.StatusText(resp.StatusCode),
		Headers:   wireHeaders(resp.Headers),
		Data:      encodeData(resp.Body),
		Error:     resp.BodyError,
	}}
}
