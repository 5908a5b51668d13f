// Package api exposes the account and session endpoints over HTTP.
//
// Routes:
//
//	POST /user/signin           {username, password}          -> {token}
//	POST /user/signup           profile                       -> {userId, token}
//	POST /user/change-password  {password, previousPassword}  -> {token}   (bearer)
//	POST /user/logout                                         -> 200       (bearer)
//	GET  /api/profile                                         -> {status, userId, role} (bearer)
//	GET  /healthz
//	GET  /metrics                                             (when a handler is supplied)
//
// Errors are written as {"error": code, "message": text} with optional
// "detail" and "fields".
package api
