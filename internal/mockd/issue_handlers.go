package mockd

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/validate"
)

type issueHandler struct {
	db     *DB
	hub    *Hub
	logger *slog.Logger
}

type issueEnvelope struct {
	Issue model.Issue `json:"issue"`
}

type issueListResponse struct {
	Issues []model.Issue `json:"issues"`
}

type pageResponse struct {
	Issues     []model.Issue    `json:"issues"`
	Pagination model.Pagination `json:"pagination"`
}

// handleList serves the filtered, sorted, paginated issue list.
func (h *issueHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := IssueQuery{
		Severity: query.Get("severity"),
		Status:   query.Get("status"),
		Tag:      query.Get("tag"),
		Search:   query.Get("search"),
		Sort:     query.Get("sort"),
	}
	q.Page, _ = strconv.Atoi(query.Get("page"))
	q.Limit, _ = strconv.Atoi(query.Get("limit"))

	if q.Severity != "" && !model.Severity(q.Severity).Valid() {
		writeError(w, apperror.ValidationFailed("severity", "unknown severity filter"))
		return
	}
	if q.Status != "" && !model.Status(q.Status).Valid() {
		writeError(w, apperror.ValidationFailed("status", "unknown status filter"))
		return
	}

	issues, total, err := h.db.QueryIssues(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	writeJSON(w, http.StatusOK, pageResponse{
		Issues: issues,
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// handleGet serves one issue. Every read counts as a view, matching the
// hosted service, so the returned record already includes this request.
func (h *issueHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.IncrementViews(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	issue, err := h.db.IssueByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, issueEnvelope{Issue: *issue})
}

// handleCreate reports a new issue and broadcasts issue:created.
func (h *issueHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var draft model.IssueDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.ValidateIssueDraft(draft); err != nil {
		writeError(w, err)
		return
	}

	issue, err := h.db.InsertIssue(r.Context(), draft, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("issue:created", issue)
	h.logger.Info("issue created", slog.String("issue_id", issue.ID),
		slog.String("reporter", userID))
	writeJSON(w, http.StatusCreated, issueEnvelope{Issue: *issue})
}

// handleUpdate edits an issue (owner or moderator) and broadcasts
// issue:updated.
func (h *issueHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var draft model.IssueDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.ValidateIssueDraft(draft); err != nil {
		writeError(w, err)
		return
	}

	if err := h.requireOwnerOrModerator(r, id); err != nil {
		writeError(w, err)
		return
	}

	issue, err := h.db.UpdateIssueDraft(r.Context(), id, draft)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("issue:updated", issue)
	writeJSON(w, http.StatusOK, issueEnvelope{Issue: *issue})
}

// handleDelete removes an issue (owner or moderator) and broadcasts
// issue:deleted with just the id.
func (h *issueHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.requireOwnerOrModerator(r, id); err != nil {
		writeError(w, err)
		return
	}

	if err := h.db.DeleteIssue(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("issue:deleted", map[string]string{"issueId": id})
	w.WriteHeader(http.StatusNoContent)
}

// handleUpvote toggles the caller's vote and broadcasts issue:upvoted with
// the new count only — the broadcast stays small no matter how big the
// issue record is.
func (h *issueHandler) handleUpvote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID, _ := userIDFromContext(r.Context())

	issue, err := h.db.ToggleUpvote(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("issue:upvoted", map[string]any{
		"issueId": issue.ID,
		"upvotes": issue.Upvotes,
	})
	writeJSON(w, http.StatusOK, issueEnvelope{Issue: *issue})
}

// handleVerify transitions open → verified. Moderator only.
func (h *issueHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.requireModerator(r); err != nil {
		writeError(w, err)
		return
	}

	issue, err := h.db.SetIssueStatus(r.Context(), id, model.StatusVerified, "")
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("issue:updated", issue)
	writeJSON(w, http.StatusOK, issueEnvelope{Issue: *issue})
}

// handleClose transitions to closed with a reason. Moderator only.
func (h *issueHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.requireModerator(r); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.ValidateCloseReason(req.Reason); err != nil {
		writeError(w, err)
		return
	}

	issue, err := h.db.SetIssueStatus(r.Context(), id, model.StatusClosed, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("issue:updated", issue)
	writeJSON(w, http.StatusOK, issueEnvelope{Issue: *issue})
}

// handleNearby returns issues within radius km of a point.
func (h *issueHandler) handleNearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, errLat := strconv.ParseFloat(query.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(query.Get("lng"), 64)
	radius, errRad := strconv.ParseFloat(query.Get("radius"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, apperror.ValidationFailed("location", "lat and lng are required"))
		return
	}
	if errRad != nil || radius <= 0 {
		radius = 5 // km
	}
	if !(model.Location{Lat: lat, Lng: lng}).Valid() {
		writeError(w, apperror.ValidationFailed("location", "coordinates out of range"))
		return
	}

	all, err := h.db.AllIssues(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	nearby := make([]model.Issue, 0)
	for _, issue := range all {
		if haversineKm(lat, lng, issue.Location.Lat, issue.Location.Lng) <= radius {
			nearby = append(nearby, issue)
		}
	}

	writeJSON(w, http.StatusOK, issueListResponse{Issues: nearby})
}

// handleSearch is free-text search over title and description.
func (h *issueHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, apperror.ValidationFailed("q", "search query is required"))
		return
	}

	issues, _, err := h.db.QueryIssues(r.Context(), IssueQuery{Search: q, Limit: 100})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, issueListResponse{Issues: issues})
}

// handleExport streams every issue as CSV or GeoJSON.
func (h *issueHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")

	all, err := h.db.AllIssues(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="issues.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"id", "title", "severity", "status", "upvotes",
			"views", "lat", "lng", "reported_by", "created_at"})
		for _, issue := range all {
			_ = cw.Write([]string{
				issue.ID, issue.Title, string(issue.Severity), string(issue.Status),
				strconv.Itoa(issue.Upvotes), strconv.Itoa(issue.Views),
				strconv.FormatFloat(issue.Location.Lat, 'f', -1, 64),
				strconv.FormatFloat(issue.Location.Lng, 'f', -1, 64),
				issue.ReportedBy.Name,
				issue.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		cw.Flush()

	case "geojson":
		features := make([]map[string]any, 0, len(all))
		for _, issue := range all {
			features = append(features, map[string]any{
				"type": "Feature",
				"geometry": map[string]any{
					"type": "Point",
					// GeoJSON is [lng, lat], not [lat, lng].
					"coordinates": []float64{issue.Location.Lng, issue.Location.Lat},
				},
				"properties": map[string]any{
					"id":       issue.ID,
					"title":    issue.Title,
					"severity": issue.Severity,
					"status":   issue.Status,
					"upvotes":  issue.Upvotes,
				},
			})
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "FeatureCollection",
			"features": features,
		})

	default:
		writeError(w, apperror.ValidationFailed("format", `export format must be "csv" or "geojson"`))
	}
}

// requireOwnerOrModerator loads the issue and checks the caller may modify
// it: the reporter, or anyone with a moderating role.
func (h *issueHandler) requireOwnerOrModerator(r *http.Request, issueID string) error {
	userID, _ := userIDFromContext(r.Context())

	issue, err := h.db.IssueByID(r.Context(), issueID)
	if err != nil {
		return err
	}
	if issue.ReportedBy.ID == userID {
		return nil
	}

	user, err := h.db.UserByID(r.Context(), userID)
	if err != nil {
		return err
	}
	if !user.CanModerate() {
		return apperror.Forbidden("only the reporter or a moderator can modify this issue")
	}
	return nil
}

func (h *issueHandler) requireModerator(r *http.Request) error {
	userID, _ := userIDFromContext(r.Context())

	user, err := h.db.UserByID(r.Context(), userID)
	if err != nil {
		return err
	}
	if !user.CanModerate() {
		return apperror.Forbidden("this action requires a moderator role")
	}
	return nil
}

// haversineKm is the great-circle distance between two WGS84 points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
