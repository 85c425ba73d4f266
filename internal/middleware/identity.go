package middleware

// Context keys set by JWTAuth and read by RequireRole and the rate limiter.
const (
	ctxSubject = "user_id"
	ctxRole    = "role"
)

// anonymous is the rate-limit identity of unauthenticated callers.
const anonymous = "anon"
