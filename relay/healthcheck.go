package relay

import (
	"context"
	"sync"
	"time"

	"github.com/storeops/opsrelay/data"
	"github.com/storeops/opsrelay/logutils"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type healthcheck struct {
	interval           time.Duration
	name               string
	thresholdHealthy   int
	thresholdUnhealthy int

	statuses *data.Window[bool]
	target   *fasthttp.Client
	ticker   *time.Ticker
	uri      *fasthttp.URI
	done     chan struct{}

	isHealthy bool
	mx        sync.Mutex
}

func newHealthcheck(
	name, url string,
	interval time.Duration,
	thresholdHealthy, thresholdUnhealthy int,
) (*healthcheck, error) {
	uri := fasthttp.AcquireURI()
	if err := uri.Parse(nil, []byte(url)); err != nil {
		fasthttp.ReleaseURI(uri)
		return nil, err
	}

	return &healthcheck{
		interval:           interval,
		isHealthy:          true,
		name:               name,
		statuses:           data.NewWindow[bool](max(thresholdHealthy, thresholdUnhealthy)),
		thresholdHealthy:   thresholdHealthy,
		thresholdUnhealthy: thresholdUnhealthy,
		uri:                uri,
		done:               make(chan struct{}),

		target: &fasthttp.Client{
			MaxConnsPerHost:     1,
			MaxConnWaitTimeout:  interval / 2,
			MaxIdleConnDuration: 2 * interval,
			MaxResponseBodySize: 4096,
			Name:                name + "-healthcheck",
			ReadTimeout:         interval / 2,
			WriteTimeout:        interval / 2,
		},
	}, nil
}

func (h *healthcheck) IsHealthy() bool {
	h.mx.Lock()
	defer h.mx.Unlock()
	return h.isHealthy
}

func (h *healthcheck) run(ctx context.Context) {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.uri == nil { // stopped
		return
	}

	ticker := time.NewTicker(h.interval)
	h.ticker = ticker

	go func() {
		for {
			select {
			case <-h.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.check(ctx)
			}
		}
	}()
}

func (h *healthcheck) stop() {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.uri == nil { // already stopped
		return
	}

	if h.ticker != nil {
		h.ticker.Stop()
	}
	close(h.done)

	fasthttp.ReleaseURI(h.uri)
	h.uri = nil
}

func (h *healthcheck) check(ctx context.Context) {
	l := logutils.LoggerFromContext(ctx).With(
		zap.String("healthcheck", h.name),
	)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(res)

	{ // prepare the request
		h.mx.Lock()
		if h.uri == nil { // stopped
			h.mx.Unlock()
			return
		}
		req.SetURI(h.uri)
		h.mx.Unlock()
	}

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetTimeout(h.interval / 2)

	ok := false
	if err := h.target.Do(req, res); err == nil {
		switch res.StatusCode() {
		case fasthttp.StatusOK, fasthttp.StatusNoContent:
			ok = true
		default:
			l.Debug("Healthcheck endpoint reported failure",
				zap.Int("http_status", res.StatusCode()),
			)
		}
	} else {
		l.Warn("Failed to query the healthcheck endpoint",
			zap.Error(err),
		)
	}

	h.mx.Lock()
	defer h.mx.Unlock()

	h.statuses.Push(ok)

	isHealthy := h.statuses.All(h.thresholdHealthy, func(ok bool) bool { return ok })
	isUnhealthy := h.statuses.All(h.thresholdUnhealthy, func(ok bool) bool { return !ok })

	if h.isHealthy && isUnhealthy {
		h.isHealthy = false
		l.Warn("Sidecar became unhealthy",
			zap.Int("threshold", h.thresholdUnhealthy),
		)
	} else if !h.isHealthy && isHealthy {
		h.isHealthy = true
		l.Info("Sidecar is healthy again",
			zap.Int("threshold", h.thresholdHealthy),
		)
	}
}
