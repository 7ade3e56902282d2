// Package response holds the JSON envelopes every handler and the gate
// write.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response is the standard envelope. Status is "OK" or "Error".
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse is the error envelope. Code is the error kind and Reason its
// machine-readable subtype, when there is one.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"subscription required"`
	Code   string `json:"code,omitempty" example:"notEntitled"`
	Reason string `json:"reason,omitempty" example:"trialExpired"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusOKWithData wraps data in a successful envelope.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error returns an error envelope without a code.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// Coded returns an error envelope carrying a kind and an optional reason.
func Coded(msg, code, reason string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
		Code:   code,
		Reason: reason,
	}
}

// ValidationError turns validator errors into one readable message.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
		Code:   "invalidRequest",
	}
}
