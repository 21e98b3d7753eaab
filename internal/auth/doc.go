// Package auth provides optional bearer-token authentication for the API.
//
// # Tokens
//
// Tokens are HS256 JWTs signed with auth.jwt_secret (at least 32 bytes).
// The "sub" claim identifies the caller and "name" carries a display name:
//
//	v, err := auth.NewJWTVerifier(secret)
//	token, err := v.Generate(uuid.NewString(), "Ada", 30*24*time.Hour)
//	principal, err := v.Verify(token)
//
// # HTTP Middleware
//
// HTTPAuthMiddleware requires "Authorization: Bearer <token>" and responds
// 401 with a JSON error body otherwise. The verified Principal is available
// to handlers through FromContext.
//
// Authentication is off when no secret is configured.
package auth
