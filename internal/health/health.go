package health

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// Gauge reports a point-in-time count, such as open drafts or live previews.
type Gauge func() int

type HealthEndpoints struct {
	version string
	gauges  map[string]Gauge
}

func NewEndpoints(version string, gauges map[string]Gauge) *HealthEndpoints {
	if gauges == nil {
		gauges = map[string]Gauge{}
	}
	return &HealthEndpoints{
		version: version,
		gauges:  gauges,
	}
}

type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Counts  map[string]int `json:"counts,omitempty"`
}

func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	if len(h.gauges) > 0 {
		response.Counts = make(map[string]int, len(h.gauges))
		for name, gauge := range h.gauges {
			response.Counts[name] = gauge()
		}
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(responseJSON)
}
