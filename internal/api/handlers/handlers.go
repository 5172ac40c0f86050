// Package handlers implements the HTTP endpoints of the receipt tracker API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
)

const dateLayout = "2006-01-02"

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireUser returns the authenticated owner or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

// decodeJSON decodes the request body into v and validates it. On failure a
// 400 is written and false returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validateStruct(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// dateRange reads start_date and end_date, defaulting to the first day of
// the current month through today.
func dateRange(r *http.Request, now time.Time) (civil.Date, civil.Date, error) {
	today := civil.DateOf(now)
	start := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	end := today

	query := r.URL.Query()
	if s := query.Get("start_date"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return civil.Date{}, civil.Date{}, errors.New("invalid start_date format")
		}
		start = d
	}
	if s := query.Get("end_date"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return civil.Date{}, civil.Date{}, errors.New("invalid end_date format")
		}
		end = d
	}
	if end.Before(start) {
		return civil.Date{}, civil.Date{}, errors.New("end_date must not be before start_date")
	}
	return start, end, nil
}
