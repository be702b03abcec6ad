package web

import (
	"encoding/json"
	"net/http"
)

// RenderJSON sets the JSON content type and encodes v as the response body.
func RenderJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
