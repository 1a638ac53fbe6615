package server

import (
	"encoding/json"
	"net/http"

	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
)

type errorResponse struct {
	Code    fsmerrors.Code `json:"code"`
	Message string         `json:"message"`
}

func statusFor(code fsmerrors.Code) int {
	switch code {
	case fsmerrors.ErrCodeInvalidInput,
		fsmerrors.ErrCodeInvalidPackage,
		fsmerrors.ErrCodeInvalidManifest,
		fsmerrors.ErrCodeInvalidFormat,
		fsmerrors.ErrCodeDuplicatePackage:
		return http.StatusBadRequest
	case fsmerrors.ErrCodeNotFound, fsmerrors.ErrCodePackageNotFound:
		return http.StatusNotFound
	case fsmerrors.ErrCodeDepthExceeded, fsmerrors.ErrCodeMalformedGraph:
		return http.StatusUnprocessableEntity
	case fsmerrors.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := fsmerrors.GetCode(err)
	if code == "" {
		code = fsmerrors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: fsmerrors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
