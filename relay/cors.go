package relay

import (
	"github.com/valyala/fasthttp"
)

const (
	corsAllowedMethods = "GET, HEAD, OPTIONS"
	corsMaxAge         = "86400"
)

// withCORS permits cross-origin reads from any origin.
//
// The header is set after next returns: the router answers 404/405 via
// ctx.Error, which resets the response headers.
func withCORS(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowOrigin, "*")
	}
}

// preflight answers OPTIONS on known paths (the router answers 404 on the
// rest).
func preflight(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowMethods, corsAllowedMethods)
	if headers := ctx.Request.Header.Peek(fasthttp.HeaderAccessControlRequestHeaders); len(headers) > 0 {
		ctx.Response.Header.SetBytesV(fasthttp.HeaderAccessControlAllowHeaders, headers)
	}
	ctx.Response.Header.Set(fasthttp.HeaderAccessControlMaxAge, corsMaxAge)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}
