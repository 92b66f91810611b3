package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
	"github.com/Clark-Hu/watchlist-tracker/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Server-assigned fields are accepted in request bodies and ignored.
type serverAssigned struct {
	ID        json.RawMessage `json:"id,omitempty"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

type itemCreateRequest struct {
	domain.ItemInput
	serverAssigned
}

type itemUpdateRequest struct {
	domain.ItemPatch
	serverAssigned
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.Items.List(r.Context())
	if err != nil {
		s.respondItemError(w, err, "list watchlist items")
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	items, err := s.repo.Items.ListBookmarked(r.Context())
	if err != nil {
		s.respondItemError(w, err, "list bookmarked items")
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.repo.Items.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondItemError(w, err, "fetch watchlist item")
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	item, err := s.repo.Items.Create(r.Context(), req.ItemInput)
	if err != nil {
		s.respondItemError(w, err, "create watchlist item")
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	patch, err := s.decodeItemPatch(w, r)
	if err != nil {
		s.respondDecodeError(w, err)
		return
	}

	item, err := s.repo.Items.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondItemError(w, err, "update watchlist item")
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	item, err := s.repo.Items.ToggleBookmark(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondItemError(w, err, "toggle bookmark")
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Items.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondItemError(w, err, "delete watchlist item")
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "watchlist item removed"})
}

// decodeItemPatch reads an update body. In legacy mode present-but-empty
// fields are dropped before the patch reaches the repository.
func (s *Server) decodeItemPatch(w http.ResponseWriter, r *http.Request) (domain.ItemPatch, error) {
	var req itemUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return domain.ItemPatch{}, err
	}
	if s.cfg.LegacyPartialUpdate {
		return req.ItemPatch.DropFalsy(), nil
	}
	return req.ItemPatch, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

var errTrailingData = errors.New("body must only contain a single JSON value")

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondItemError maps repository and validation errors onto HTTP statuses.
func (s *Server) respondItemError(w http.ResponseWriter, err error, action string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Validation failed",
			Details: validationErr.Fields,
		})
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Watchlist item not found")
	default:
		s.logger.Printf("%s error: %v", action, err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON payload")
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON payload")
	case errors.As(err, &typeError):
		field := jsonFieldName(typeError.Field)
		if field == "" {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body must be a JSON object")
			return
		}
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("Invalid value for field %s", field),
			Details: map[string]string{field: "has the wrong type"},
		})
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "BAD_REQUEST", fmt.Sprintf("Request body must not be larger than %d bytes", maxBytesError.Limit))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("Unknown field %s", field))
	case errors.Is(err, errTrailingData):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body must only contain a single JSON value")
	default:
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to parse request body")
	}
}

// jsonFieldName strips the embedded struct path encoding/json puts in front
// of the field name, e.g. "ItemInput.rating" becomes "rating".
func jsonFieldName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
