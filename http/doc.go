// Package http exposes the box gateway over HTTP.
//
// Every request carries the shared token in the "t" query parameter. Requests
// pass through a fixed middleware chain before reaching a route:
//
//	RequestID → client identity → logging → Recoverer → metrics → CORS
//	  → OPTIONS 204 → global rate limit → lockout check → token check
//
// # Routes
//
//	GET    /media/box-NN/list              list objects in the box
//	POST   /media/box-NN/upload            multipart upload, field "files"
//	DELETE /media/box-NN?all=1             delete every object in the box
//	DELETE /media/box-NN/file?name=<name>  delete one object, all legacy keys
//	GET    /media/box-NN/<name>            stream, honours a single Range
//	HEAD   /media/box-NN/<name>            headers only
//	GET    /<key>?check=1                  {"ok":true,"exists":bool}
//	GET    /<key>                          302 to the stored URL
//
// Failures are JSON bodies of the form {"ok":false,"error":"<code>"}; see
// HandleError for the mapping from domain errors to codes.
//
// # Usage
//
//	limiter, _ := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.DefaultConfig())
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Auth:    boxgate.NewTokenAuthenticator(token),
//	    Limiter: limiter,
//	    CORS:    http.DefaultCORSConfig(),
//	}, service)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
package http
