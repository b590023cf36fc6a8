// Package auth gates the admin dashboard and its JSON API.
//
// Administrators are stored in the local SQLite database and sign in with
// email and password. Browser requests carry an scs session cookie protected
// by gorilla/csrf; API clients send an HS256 bearer token obtained from
// POST /api/auth/token.
//
// Configuration:
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Generated per process if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//
// Handlers obtain the signed-in administrator with Actor(c), which is what
// the audit trail records as the acting user.
package auth
