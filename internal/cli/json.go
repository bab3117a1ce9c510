package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Set by --json.
var jsonOutput bool

// Response is the envelope every --json command writes to stdout.
type Response struct {
	OK       bool        `json:"ok"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
	Warnings []Warning   `json:"warnings,omitempty"`
	Meta     *Meta       `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Warning is a non-fatal problem reported next to the data.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	Count  int   `json:"count,omitempty"`
	TookMs int64 `json:"took_ms,omitempty"`
}

// metaFor builds a Meta for count items processed in d.
func metaFor(count int, d time.Duration) *Meta {
	return &Meta{Count: count, TookMs: d.Milliseconds()}
}

func emit(resp Response) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func outputSuccess(data interface{}, meta *Meta) {
	outputSuccessWithWarnings(data, nil, meta)
}

func outputSuccessWithWarnings(data interface{}, warnings []Warning, meta *Meta) {
	emit(Response{OK: true, Data: data, Warnings: warnings, Meta: meta})
}

func isJSONOutput() bool {
	return jsonOutput
}

// errReported marks an error whose JSON form was already written. The
// process still exits non-zero, but Execute does not print it again.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }

// fail reports err under code. In JSON mode the error envelope is written
// and a reported error returned; in text mode the suggestion is appended
// for Cobra to print.
func fail(code string, err error, suggestion string, details interface{}) error {
	if !jsonOutput {
		if suggestion != "" {
			return fmt.Errorf("%w\n\n%s", err, suggestion)
		}
		return err
	}
	emit(Response{Error: &ErrorInfo{
		Code:       code,
		Message:    err.Error(),
		Details:    details,
		Suggestion: suggestion,
	}})
	return errReported{err}
}

func handleError(code string, err error, suggestion string) error {
	return fail(code, err, suggestion, nil)
}

func handleErrorMsg(code, message, suggestion string) error {
	return fail(code, errors.New(message), suggestion, nil)
}

func handleErrorWithDetails(code, message, suggestion string, details interface{}) error {
	return fail(code, errors.New(message), suggestion, details)
}
