package common

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the envelope every non-2xx body uses; clients key on
// the single "error" field.
type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithJSON marshals before writing the header so an encoding
// failure can still degrade to a 500 envelope.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.WriteHeader(code)
	w.Write(body)
}
