package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"math/rand/v2"
	"net"
	"time"

	"github.com/storeops/opsrelay/config"
	"github.com/storeops/opsrelay/logutils"
	"github.com/storeops/opsrelay/metrics"
	"github.com/storeops/opsrelay/utils"

	"github.com/fasthttp/router"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	otelapi "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	headerRequestID      = "x-request-id"
	headerForwardedFor   = "x-forwarded-for"
	headerForwardedHost  = "x-forwarded-host"
	headerForwardedProto = "x-forwarded-proto"
)

type Config struct {
	Name string

	Chaos       *config.Chaos
	Healthcheck *config.Healthcheck
	Relay       *config.Relay
	Sidecar     *config.Sidecar
}

type Relay struct {
	cfg *Config

	backend  *fasthttp.Client
	frontend *fasthttp.Server

	routes      []*route
	healthcheck *healthcheck
	logger      *zap.Logger
}

// route binds an inbound path to the fixed sidecar url it is relayed to.
type route struct {
	name string
	path string
	url  string
	uri  *fasthttp.URI
}

func New(cfg *Config) (*Relay, error) {
	l := zap.L().With(zap.String("relay_name", cfg.Name))

	p := &Relay{
		cfg:    cfg,
		logger: l,
	}

	for _, r := range []struct{ name, url string }{
		{"orders", cfg.Sidecar.OrdersURL()},
		{"queue", cfg.Sidecar.QueueURL()},
	} {
		uri := fasthttp.AcquireURI()
		if err := uri.Parse(nil, []byte(r.url)); err != nil {
			fasthttp.ReleaseURI(uri)
			p.releaseURIs()
			return nil, err
		}
		p.routes = append(p.routes, &route{
			name: r.name,
			path: "/" + r.name,
			url:  r.url,
			uri:  uri,
		})
	}

	mux := router.New()
	for _, r := range p.routes {
		mux.GET(r.path, p.relay(r))
		mux.HEAD(r.path, p.relay(r))
	}
	mux.GET("/healthz", p.health)
	mux.GlobalOPTIONS = preflight
	mux.PanicHandler = p.panicked

	p.frontend = &fasthttp.Server{
		ConnState:          p.clientConnectionChanged,
		Handler:            withCORS(mux.Handler),
		IdleTimeout:        cfg.Relay.ClientIdleConnectionTimeout,
		Logger:             logutils.FasthttpLogger(l),
		MaxConnsPerIP:      cfg.Relay.MaxClientConnectionsPerIP,
		MaxRequestBodySize: 64 * 1024,
		Name:               cfg.Name,
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
	}

	if cfg.Relay.TLSEnabled() {
		cert, err := cfg.Relay.LoadTLSCertificate()
		if err != nil {
			p.releaseURIs()
			return nil, err
		}

		p.frontend.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	p.backend = &fasthttp.Client{
		MaxIdleConnDuration: 30 * time.Second,
		MaxResponseBodySize: cfg.Relay.MaxResponseSizeMb * 1024 * 1024,
		Name:                cfg.Name,
		ReadTimeout:         cfg.Relay.BackendTimeout,
		WriteTimeout:        5 * time.Second,
	}

	if cfg.Healthcheck.Enabled {
		h, err := newHealthcheck(
			cfg.Name,
			cfg.Sidecar.URL(cfg.Healthcheck.Path),
			cfg.Healthcheck.Interval,
			cfg.Healthcheck.ThresholdHealthy,
			cfg.Healthcheck.ThresholdUnhealthy,
		)
		if err != nil {
			p.releaseURIs()
			return nil, err
		}
		p.healthcheck = h
	}

	return p, nil
}

func (p *Relay) Run(ctx context.Context, failure chan<- error) {
	if p == nil {
		return
	}

	l := p.logger

	go func() { // run the relay
		fields := []zap.Field{
			zap.String("listen_address", p.cfg.Relay.ListenAddress),
			zap.Bool("tls", p.cfg.Relay.TLSEnabled()),
		}
		for _, r := range p.routes {
			fields = append(fields, zap.String(r.name+"_url", r.url))
		}
		l.Info("Relay is going up...", fields...)

		var err error
		if p.cfg.Relay.TLSEnabled() {
			err = p.frontend.ListenAndServeTLS(p.cfg.Relay.ListenAddress, "", "")
		} else {
			err = p.frontend.ListenAndServe(p.cfg.Relay.ListenAddress)
		}
		if err != nil {
			failure <- err
		}
		l.Info("Relay is down")
	}()

	if p.healthcheck != nil {
		p.healthcheck.run(logutils.ContextWithLogger(ctx, l))
	}
}

func (p *Relay) Stop(ctx context.Context) error {
	if p == nil {
		return nil
	}

	if p.healthcheck != nil {
		p.healthcheck.stop()
	}

	if err := p.frontend.ShutdownWithContext(ctx); err != nil {
		// in-flight handlers may still use the route uris
		return err
	}

	p.releaseURIs()

	return nil
}

// IsHealthy reports the sidecar health as seen by the healthcheck.  Without
// healthcheck the sidecar is assumed healthy.
func (p *Relay) IsHealthy() bool {
	if p.healthcheck == nil {
		return true
	}
	return p.healthcheck.IsHealthy()
}

func (p *Relay) Observe(ctx context.Context, o otelapi.Observer) error {
	if p == nil {
		return nil
	}

	attrs := otelapi.WithAttributes(
		attribute.KeyValue{Key: "relay", Value: attribute.StringValue(p.cfg.Name)},
	)

	o.ObserveInt64(metrics.FrontendConnectionsCount, int64(p.frontend.GetOpenConnectionsCount()), attrs)

	healthy := int64(0)
	if p.IsHealthy() {
		healthy = 1
	}
	o.ObserveInt64(metrics.SidecarHealthy, healthy, attrs)

	return nil
}

func (p *Relay) relay(r *route) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		tsReqReceived := time.Now()

		requestID := string(ctx.Request.Header.Peek(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Response.Header.Set(headerRequestID, requestID)

		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)

		res := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseResponse(res)

		{ // prepare the request
			req.SetURI(r.uri)
			req.Header.SetMethod(fasthttp.MethodGet)
			req.SetTimeout(p.cfg.Relay.BackendTimeout)
			req.Header.Set(headerRequestID, requestID)
			req.Header.Set(headerForwardedFor, ctx.RemoteIP().String())
			req.Header.Set(headerForwardedHost, utils.Str(ctx.Host()))
			if ctx.IsTLS() {
				req.Header.Set(headerForwardedProto, "https")
			} else {
				req.Header.Set(headerForwardedProto, "http")
			}
		}

		l := p.logger.With(
			zap.String("route", r.name),
			zap.String("request_id", requestID),
			zap.Uint64("connection_id", ctx.ConnID()),
			zap.String("remote_addr", ctx.RemoteAddr().String()),
			zap.String("user_agent", string(ctx.UserAgent())),
			zap.String("upstream_url", r.url),
		)

		var (
			err   error
			chaos bool
		)

		tsReqRelayStart := time.Now()
		if p.cfg.Chaos.Enabled && rand.Float64() < p.cfg.Chaos.InjectedHttpErrorProbability/100 {
			chaos = true
		} else {
			err = p.backend.Do(req, res)
		}
		tsReqRelayEnd := time.Now()

		loggedFields := make([]zap.Field, 0, 8)

		if p.cfg.Chaos.Enabled { // chaos-inject latency
			latency := p.cfg.Chaos.MinInjectedLatency
			if spread := p.cfg.Chaos.MaxInjectedLatency - p.cfg.Chaos.MinInjectedLatency; spread > 0 {
				latency += time.Duration(rand.Int64N(int64(spread) + 1))
			}
			time.Sleep(latency - time.Since(tsReqReceived))
			loggedFields = append(loggedFields,
				zap.Bool("chaos_latency", true),
				zap.Bool("chaos_http_error", chaos),
			)
		}

		switch {
		case chaos:
			p.injectHttpError(ctx)

		case err != nil:
			status := backendErrorStatus(err)
			ctx.SetStatusCode(status)
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBodyString(err.Error())

			loggedFields = append(loggedFields,
				zap.NamedError("error_backend", err),
			)

		default:
			p.respond(ctx, res)

			if p.cfg.Relay.LogResponses && len(res.Body()) <= p.cfg.Relay.LogResponsesMaxSize {
				var jsonResponse interface{}
				if err := json.Unmarshal(res.Body(), &jsonResponse); err == nil {
					loggedFields = append(loggedFields,
						zap.Any("json_response", jsonResponse),
					)
				} else {
					loggedFields = append(loggedFields,
						zap.String("http_response", string(res.Body())),
					)
				}
			}

			loggedFields = append(loggedFields,
				zap.Int("backend_http_status", res.StatusCode()),
			)
		}

		loggedFields = append(loggedFields,
			zap.Int("http_status", ctx.Response.StatusCode()),
			zap.Int("response_size", len(ctx.Response.Body())),
			zap.Duration("latency_backend", tsReqRelayEnd.Sub(tsReqRelayStart)),
			zap.Duration("latency_total", time.Since(tsReqReceived)),
		)

		{ // emit logs and metrics
			metricAttributes := otelapi.WithAttributes(
				attribute.KeyValue{Key: "relay", Value: attribute.StringValue(p.cfg.Name)},
				attribute.KeyValue{Key: "route", Value: attribute.StringValue(r.name)},
			)

			metrics.LatencyBackend.Record(context.TODO(), tsReqRelayEnd.Sub(tsReqRelayStart).Milliseconds(), metricAttributes)
			metrics.LatencyTotal.Record(context.TODO(), time.Since(tsReqReceived).Milliseconds(), metricAttributes)
			metrics.ResponseSize.Record(context.TODO(), int64(len(ctx.Response.Body())), metricAttributes)

			switch {
			case err != nil:
				metrics.RelayFailureCount.Add(context.TODO(), 1, metricAttributes)
				l.Error("Failed to relay the request", loggedFields...)
			case chaos:
				metrics.ChaosCount.Add(context.TODO(), 1, metricAttributes)
				l.Info("Injected chaos error instead of relaying the request", loggedFields...)
			default:
				metrics.RelaySuccessCount.Add(context.TODO(), 1, metricAttributes)
				l.Info("Relayed the request", loggedFields...)
			}
		}
	}
}

// respond copies the backend's body verbatim along with its content type.
// The status is copied only when configured so; otherwise callers always
// see 200 for any response the backend produced.
func (p *Relay) respond(ctx *fasthttp.RequestCtx, res *fasthttp.Response) {
	if ct := res.Header.ContentType(); len(ct) > 0 {
		ctx.Response.Header.SetContentTypeBytes(ct)
	}

	if p.cfg.Relay.ForwardStatus {
		ctx.SetStatusCode(res.StatusCode())
	} else {
		ctx.SetStatusCode(fasthttp.StatusOK)
	}

	ctx.SetBody(res.Body())
}

func backendErrorStatus(err error) int {
	var netErr net.Error
	if errors.Is(err, fasthttp.ErrTimeout) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fasthttp.StatusGatewayTimeout
	}
	return fasthttp.StatusBadGateway
}

func (p *Relay) health(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf-8")
	if p.IsHealthy() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	ctx.SetBodyString("sidecar is unhealthy")
}

func (p *Relay) panicked(ctx *fasthttp.RequestCtx, recovered interface{}) {
	p.logger.Error("Panic while handling the request",
		zap.Any("panic", recovered),
		zap.String("path", utils.Str(ctx.Path())),
		zap.String("remote_addr", ctx.RemoteAddr().String()),
	)
	ctx.ResetBody()
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
}

func (p *Relay) injectHttpError(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("chaos-injected error")
}

func (p *Relay) clientConnectionChanged(conn net.Conn, state fasthttp.ConnState) {
	l := p.logger.With(
		zap.String("remote_addr", conn.RemoteAddr().String()),
	)

	switch state {
	case fasthttp.StateNew:
		l.Debug("Client connection was established")
	case fasthttp.StateHijacked:
		l.Debug("Client connection was hijacked")
	case fasthttp.StateClosed:
		l.Debug("Client connection was closed")
	}
}

func (p *Relay) releaseURIs() {
	for _, r := range p.routes {
		if r.uri != nil {
			fasthttp.ReleaseURI(r.uri)
			r.uri = nil
		}
	}
}
