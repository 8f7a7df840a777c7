package api

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorBody is the parsed form of a gateway error response. Every field is
// optional; absence is a valid state.
//
// Accepted shapes:
//
//	{"error": {"message": "...", "type": "...", "code": "...", ...}}
//	{"error": "message"}
//	{"message": "...", "type": "..."}
type ErrorBody struct {
	Message          string
	Type             string
	Code             string
	CreditsRequired  *int
	CreditsRemaining *int
	ResetDate        string
	Band             string
	RequiredTier     string
	CurrentTier      string
}

// ParseErrorBody reads an error body. It reports false when the body is not
// a JSON object; it never fails otherwise.
func ParseErrorBody(body []byte) (ErrorBody, bool) {
	if !gjson.ValidBytes(body) {
		return ErrorBody{}, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ErrorBody{}, false
	}

	detail := root
	if e := root.Get("error"); e.Exists() {
		switch {
		case e.IsObject():
			detail = e
		case e.Type == gjson.String:
			return ErrorBody{Message: e.String()}, true
		}
	}

	return ErrorBody{
		Message:          stringField(detail, "message"),
		Type:             stringField(detail, "type"),
		Code:             stringField(detail, "code"),
		CreditsRequired:  intField(detail, "credits_required"),
		CreditsRemaining: intField(detail, "credits_remaining"),
		ResetDate:        stringField(detail, "reset_date"),
		Band:             stringField(detail, "band"),
		RequiredTier:     stringField(detail, "required_tier"),
		CurrentTier:      stringField(detail, "current_tier"),
	}, true
}

// stringField accepts strings and numbers ("code" is numeric on some
// upstreams); anything else reads as absent.
func stringField(r gjson.Result, key string) string {
	v := r.Get(key)
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

func intField(r gjson.Result, key string) *int {
	v := r.Get(key)
	if v.Type != gjson.Number {
		return nil
	}
	n := int(v.Int())
	return &n
}
