// Package reporter defines the sink that receives captured network records
// and a few in-process implementations of it.
package reporter

import (
	"github.com/simaofelgueirasJM/flipper/internal/model"
)

// Reporter receives capture records. Calls are fire-and-forget: nothing is
// returned and the caller never waits on storage or display. Implementations
// must be safe for concurrent use since every in-flight HTTP call reports
// from its own goroutine.
type Reporter interface {
	ReportRequest(req model.RequestInfo)
	ReportResponse(resp model.ResponseInfo)
}

// Multi fans every record out to each reporter in order.
type Multi []Reporter

// NewMulti drops nil entries.
func NewMulti(reporters ...Reporter) Multi {
	out := make(Multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m Multi) ReportRequest(req model.RequestInfo) {
	for _, r := range m {
		r.ReportRequest(req)
	}
}

func (m Multi) ReportResponse(resp model.ResponseInfo) {
	for _, r := range m {
		r.ReportResponse(resp)
	}
}

// Func adapts plain functions to Reporter. Either field may be nil.
type Func struct {
	OnRequest  func(model.RequestInfo)
	OnResponse func(model.ResponseInfo)
}

func (f Func) ReportRequest(req model.RequestInfo) {
	if f.OnRequest != nil {
		f.OnRequest(req)
	}
}

func (f Func) ReportResponse(resp model.ResponseInfo) {
	if f.OnResponse != nil {
		f.OnResponse(resp)
	}
}
