package http

import "net/http"

// WriteSuccess writes {"success": true, ...fields} with the given status code
func WriteSuccess(w http.ResponseWriter, statusCode int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	WriteJSON(w, statusCode, body)
}

// WriteMessage writes {"success": true, "message": message}
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteSuccess(w, statusCode, map[string]any{"message": message})
}
