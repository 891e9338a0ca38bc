package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/roach88/marketplace/internal/ir"
)

// Response is the envelope of every JSON body.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, Response{Status: "ok", Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, Response{Status: "error", Error: &ErrorBody{Code: code, Message: message}})
}

// respondErr maps a marketplace error to its status.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var e *ir.Error
	if !errors.As(err, &e) {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	respondError(w, r, statusFor(e.Code), string(e.Code), err.Error())
}

func statusFor(code ir.ErrorCode) int {
	switch code {
	case ir.ErrCodeUnauthorized:
		return http.StatusForbidden
	case ir.ErrCodeInvariantViolation:
		return http.StatusConflict
	case ir.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ir.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
