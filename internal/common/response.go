package common

import (
	"encoding/json"
	"net/http"
)

// Result is the {success, message} envelope the register endpoints answer with.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON encodes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message renders a Result.
func Message(w http.ResponseWriter, status int, success bool, message string) {
	JSON(w, status, Result{Success: success, Message: message})
}

// PlainError renders {"error": message}, the shape catalog lookups fail with.
func PlainError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
