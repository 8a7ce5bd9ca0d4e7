package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerprep/interview/internal/documents"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

type DocumentHandler struct {
	repo   documents.Repository
	logger *zap.Logger
}

func NewDocumentHandler(repo documents.Repository, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{repo: repo, logger: logger}
}

func (h *DocumentHandler) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.CreateDocumentRequest](r)
	doc := &models.Document{
		UserID: middleware.UserIDFromContext(r.Context()),
		Title:  req.Title,
		Text:   req.Text,
	}
	if err := h.repo.Create(r.Context(), doc); err != nil {
		h.logger.Error("failed to store document", zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "failed to store document")
		return
	}
	h.logger.Info("document stored",
		zap.String("document_id", doc.ID),
		zap.Int("chars", len(doc.Text)))

	// the text was just uploaded, no need to echo it
	created := *doc
	created.Text = ""
	utils.JSON(w, http.StatusCreated, created)
}

func (h *DocumentHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, documents.ErrNotFound) || (err == nil && doc.UserID != middleware.UserIDFromContext(r.Context())) {
		utils.Error(w, http.StatusNotFound, "document_not_found", "document not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load document", zap.String("document_id", id), zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "internal_error", "failed to load document")
		return
	}
	utils.JSON(w, http.StatusOK, doc)
}
