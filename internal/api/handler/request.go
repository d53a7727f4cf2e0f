package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"messagely/internal/common"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// decodeJSON reads r's body into dst, writing a 400 and returning false on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondWithError(w, http.StatusBadRequest, "Request body too large")
			return false
		}
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}
