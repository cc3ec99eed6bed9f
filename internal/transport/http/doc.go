// Package http implements the gateway's HTTP handlers. Handlers are thin:
// they decode a request, call a service and render its Response envelope.
//
// # Error Handling
//
// A failed service response is turned back into an AppError and rendered
// as RFC 7807 Problem Details by the shared ErrorHandler:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Validation Failed",
//	    "status": 422,
//	    "detail": "Please enter a valid email address",
//	    "instance": "/api/auth/signup",
//	    "errors": {"email": ["Please enter a valid email address"]}
//	}
//
// Security rejections render as 429 and backend failures as 502 with a
// generic message; the cause is only logged.
package http
