package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"orderdash/internal/export"
	"orderdash/internal/orders"
	"orderdash/internal/session"
	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

type errorBody struct {
	Code        errors.ErrorCode `json:"code"`
	Message     string           `json:"message"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidationFailed, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeSourceUnavailable, errors.ErrCodeConnectionFailed,
		errors.ErrCodeConnectionTimeout, errors.ErrCodeSQLTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := errorBody{Code: errors.GetErrorCode(err), Message: err.Error()}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Suggestions = appErr.Suggestions
	}

	status := statusFor(body.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// session loads the dataset and returns the caller's session, issuing a
// cookie when a new one is created.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	ds, err := s.loader.Load(r.Context())
	if err != nil {
		return nil, err
	}

	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.Resolve(id, ds)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

// expirer is implemented by loaders that can report when the cached table
// goes stale.
type expirer interface {
	ExpiresAt() (time.Time, bool)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if e, ok := s.loader.(expirer); ok {
		if at, ok := e.ExpiresAt(); ok {
			resp["cache_expires_at"] = at.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type ordersResponse struct {
	Rows           []models.OrderRecord `json:"rows"`
	Total          int                  `json:"total"`
	FiltersChanged bool                 `json:"filters_changed"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := sess.Snapshot()

	rows := orders.SortForDisplay(view.Rows)
	total := len(rows)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, errors.ValidationError("limit", raw, "must be a non-negative integer"))
			return
		}
		if limit > 0 && limit < total {
			rows = rows[:limit]
		}
	}

	writeJSON(w, http.StatusOK, ordersResponse{Rows: rows, Total: total, FiltersChanged: view.Dirty})
}

type summaryResponse struct {
	Spec           models.FilterSpec `json:"spec"`
	Defaults       models.FilterSpec `json:"defaults"`
	Summary        models.Summary    `json:"summary"`
	FiltersChanged bool              `json:"filters_changed"`
	LoadedAt       time.Time         `json:"loaded_at"`
}

func summaryOf(view session.View) summaryResponse {
	return summaryResponse{
		Spec:           view.Spec,
		Defaults:       view.Defaults,
		Summary:        view.Summary,
		FiltersChanged: view.Dirty,
		LoadedAt:       view.LoadedAt,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryOf(sess.Snapshot()))
}

type chartsResponse struct {
	Daily      []orders.DailyTotal     `json:"daily"`
	Warehouses []orders.WarehouseTotal `json:"warehouses"`
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := sess.Snapshot()
	writeJSON(w, http.StatusOK, chartsResponse{Daily: view.Daily, Warehouses: view.Warehouses})
}

type filterRequest struct {
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Warehouses []string `json:"warehouses"`
	Apply      *bool    `json:"apply"`
}

func (req filterRequest) spec() (models.FilterSpec, error) {
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return models.FilterSpec{}, errors.ValidationError("start_date", req.StartDate, "must be YYYY-MM-DD")
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return models.FilterSpec{}, errors.ValidationError("end_date", req.EndDate, "must be YYYY-MM-DD")
	}
	return models.NewFilterSpec(start, end, req.Warehouses), nil
}

// handleFilters stages a new filter and, unless apply is false, applies it.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "Malformed filter request"))
		return
	}
	spec, err := req.spec()
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sess.Stage(spec)
	if req.Apply == nil || *req.Apply {
		writeJSON(w, http.StatusOK, summaryOf(sess.Apply()))
		return
	}
	writeJSON(w, http.StatusOK, summaryOf(sess.Snapshot()))
}

// handleReset restores the default filters; refresh=true also drops the
// cached table so the source is queried again.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		s.loader.Invalidate()
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryOf(sess.Reset()))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := export.Encode(format, sess.Snapshot().Rows)
	if err != nil {
		s.writeError(w, err)
		return
	}

	name := s.fileName
	if format == export.FormatXLSX {
		name = format.FileName()
	}
	if s.metrics != nil {
		s.metrics.Exports.WithLabelValues(string(format)).Inc()
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
