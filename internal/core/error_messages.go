package core

// error_messages.go maps technical errors to user-friendly messages with codes
// for support reference. Users quote the code; support staff look it up here.
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Price required: No purchase price was given
//	         Action: Enter the vehicle price in 만원
//	         Patterns: "price is required"
//
//	REQ002 - Invalid price: The price is not a number
//	         Action: Enter the price as a whole number in 만원, e.g. 5500
//	         Patterns: "invalid price"
//
//	REQ003 - Vehicle required: No vehicle was selected
//	         Action: Select a vehicle or give manufacturer and model
//	         Patterns: "vehicle is required"
//
//	REQ004 - Unknown group: The region group is not recognised
//	         Action: Use capital-area, metro-city or province
//	         Patterns: "unknown region group"
//
//	REQ005 - Invalid request: The request body could not be read
//	         Action: Send a JSON object or form fields
//	         Patterns: "invalid request body"
//
//	REQ006 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	REQ007 - Request timeout: Request timed out
//	         Action: Please try again in a moment
//	         Patterns: "context deadline exceeded"
//
// # Lookup Errors (NF001-NF099)
//
//	NF001 - Region not found: The region is not in the directory
//	        Action: Check the region name, e.g. 서울특별시
//	        Patterns: "region not found"
//
//	NF002 - Vehicle not found: The vehicle is not in the current dataset
//	        Action: Pick a vehicle from the list
//	        Patterns: "vehicle not found"
//
// # Data Errors (DATA001-DATA099)
//
//	DATA001 - Source not configured: No location is set for the data source
//	          Action: Set DATA_PRIMARY_PATH or the spreadsheet settings
//	          Patterns: "source not configured"
//
//	DATA002 - Malformed document: The dataset file is not valid JSON
//	          Action: Rebuild the dataset with "evcalc build"
//	          Patterns: "decode dataset document"
//
//	DATA003 - Missing columns: The CSV is missing required columns
//	          Action: Export the CSV with the standard Korean headers
//	          Patterns: "missing required columns"
//
//	DATA004 - Remote error: The data server answered with an error
//	          Action: Check the URL and API key, or wait if rate limited
//	          Patterns: "unexpected http status"
//
//	DATA005 - Empty dataset: The source contained no usable vehicles
//	          Action: Check the source file contents
//	          Patterns: "empty dataset"
//
// # Cache Errors (CACHE001-CACHE099)
//
//	CACHE001 - Invalid payload: Only JSON payloads can be cached
//	           Action: This is a bug; report it with the request id
//	           Patterns: "invalid cache payload"
//
//	CACHE002 - Cache unavailable: The cache store could not be reached
//	           Action: Check CACHE_BACKEND settings; lookups still work uncached
//	           Patterns: "cache backend"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so more specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// Request
	{"price is required", UserMessage{"No purchase price was given", "Enter the vehicle price in 만원", "REQ001"}},
	{"invalid price", UserMessage{"The price is not a number", "Enter the price as a whole number in 만원, e.g. 5500", "REQ002"}},
	{"vehicle is required", UserMessage{"No vehicle was selected", "Select a vehicle or give manufacturer and model", "REQ003"}},
	{"unknown region group", UserMessage{"The region group is not recognised", "Use capital-area, metro-city or province", "REQ004"}},
	{"invalid request body", UserMessage{"The request body could not be read", "Send a JSON object or form fields", "REQ005"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ006"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Please try again in a moment", "REQ007"}},

	// Lookup
	{"region not found", UserMessage{"The region is not in the directory", "Check the region name, e.g. 서울특별시", "NF001"}},
	{"vehicle not found", UserMessage{"The vehicle is not in the current dataset", "Pick a vehicle from the list", "NF002"}},

	// Data
	{"source not configured", UserMessage{"No location is set for the data source", "Set DATA_PRIMARY_PATH or the spreadsheet settings", "DATA001"}},
	{"decode dataset document", UserMessage{"The dataset file is not valid JSON", `Rebuild the dataset with "evcalc build"`, "DATA002"}},
	{"missing required columns", UserMessage{"The CSV is missing required columns", "Export the CSV with the standard Korean headers", "DATA003"}},
	{"unexpected http status", UserMessage{"The data server answered with an error", "Check the URL and API key, or wait if rate limited", "DATA004"}},
	{"empty dataset", UserMessage{"The source contained no usable vehicles", "Check the source file contents", "DATA005"}},

	// Cache
	{"invalid cache payload", UserMessage{"Only JSON payloads can be cached", "This is a bug; report it with the request id", "CACHE001"}},
	{"cache backend", UserMessage{"The cache store could not be reached", "Check CACHE_BACKEND settings; lookups still work uncached", "CACHE002"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the generic ERR000 message is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error matches a known pattern
// rather than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
