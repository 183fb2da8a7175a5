package handlers

import (
	"encoding/json"
	"net/http"
	"os"
)

// Health отвечает 200 и сообщает, есть ли обученная модель.
func Health(settingsPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := os.Stat(settingsPath)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"model":  err == nil,
		})
	}
}
