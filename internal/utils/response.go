package utils

import (
	"encoding/json"
	"net/http"

	"peerprep/interview/internal/models"
)

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteJSON is an alias for JSON for compatibility
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	JSON(w, statusCode, data)
}

// Error writes a models.ErrorResponse body.
func Error(w http.ResponseWriter, statusCode int, code, message string) {
	JSON(w, statusCode, models.ErrorResponse{Code: code, Message: message})
}
