// Package server provides HTTP routing, the session middleware, and the handlers
// exposed to the presentation layer.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. [BasicRouter] uses [http.ServeMux] with
// method-qualified patterns internally.
//
// # Session Middleware
//
// [SessionMiddleware] runs on every request: it extracts the session cookie,
// validates the session against storage, reissues the cookie when the session was
// extended, clears it when invalid, and triggers a synchronous access-token refresh
// when the token is inside the refresh window. Refresh failure is logged and the
// request proceeds with the stale token; the downstream Spotify call then surfaces
// the upstream error. Unauthenticated requests are redirected to /login, or
// answered 401 under /api/.
//
// # Handlers
//
// [AuthHandler] implements the OAuth login/callback/logout flow. [PlaylistHandler]
// serves the merged playlist view, the overlay mutations, and the commit endpoint.
package server
