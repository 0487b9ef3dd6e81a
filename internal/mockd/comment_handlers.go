package mockd

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
	"github.com/urbanpatch/urbanpatch-go/internal/model"
	"github.com/urbanpatch/urbanpatch-go/internal/validate"
)

type commentHandler struct {
	db     *DB
	hub    *Hub
	logger *slog.Logger
}

type commentEnvelope struct {
	Comment model.Comment `json:"comment"`
}

// handleList serves an issue's comments, oldest first.
func (h *commentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "id")

	comments, err := h.db.CommentsForIssue(r.Context(), issueID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Comments []model.Comment `json:"comments"`
	}{comments})
}

// handleCreate posts a comment and broadcasts comment:added.
func (h *commentHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "id")
	userID, _ := userIDFromContext(r.Context())

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.ValidateComment(req.Text); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.db.InsertComment(r.Context(), issueID, userID, validate.Sanitize(req.Text))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("comment:added", comment)
	writeJSON(w, http.StatusCreated, commentEnvelope{Comment: *comment})
}

// handleUpdate edits a comment's text. Author only. Deliberately no
// broadcast: there is no comment:updated event in the protocol.
func (h *commentHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")
	userID, _ := userIDFromContext(r.Context())

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validate.ValidateComment(req.Text); err != nil {
		writeError(w, err)
		return
	}

	existing, err := h.db.CommentByID(r.Context(), issueID, commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.Author.ID != userID {
		writeError(w, apperror.Forbidden("only the author can edit a comment"))
		return
	}

	comment, err := h.db.UpdateCommentText(r.Context(), issueID, commentID, validate.Sanitize(req.Text))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commentEnvelope{Comment: *comment})
}

// handleDelete removes a comment (author or moderator) and broadcasts
// comment:deleted.
func (h *commentHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")
	userID, _ := userIDFromContext(r.Context())

	existing, err := h.db.CommentByID(r.Context(), issueID, commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.Author.ID != userID {
		user, err := h.db.UserByID(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !user.CanModerate() {
			writeError(w, apperror.Forbidden("only the author or a moderator can delete a comment"))
			return
		}
	}

	if err := h.db.DeleteComment(r.Context(), issueID, commentID); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast("comment:deleted", map[string]string{
		"issueId":   issueID,
		"commentId": commentID,
	})
	w.WriteHeader(http.StatusNoContent)
}
