package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/receipt-tracker/internal/api/middleware"
	bq "github.com/dvloznov/receipt-tracker/internal/bigquery"
	"github.com/dvloznov/receipt-tracker/internal/domain"
	"github.com/dvloznov/receipt-tracker/internal/pipeline"
	"github.com/rs/zerolog"
)

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	repo bq.CategoryRepository
	log  zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo bq.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		repo: repo,
		log:  log,
	}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	categories := pipeline.LoadCatalog(r.Context(), h.repo, userID).Categories()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

type createCategoryRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=50"`
	Icon         string `json:"icon"`
	Color        string `json:"color" validate:"omitempty,startswith=hsl("`
	CategoryType string `json:"categoryType" validate:"omitempty,oneof=income expense both"`
}

// CreateCategory handles POST /api/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	catalog, err := pipeline.ReadCatalog(ctx, h.repo, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}
	if _, exists := catalog.Lookup(name); exists {
		middleware.WriteError(w, http.StatusConflict, "Category already exists")
		return
	}

	color := req.Color
	if color == "" {
		color = domain.DefaultColor
	}
	owner := userID
	category := &domain.Category{
		OwnerID:      &owner,
		Name:         name,
		Icon:         domain.ParseIcon(req.Icon),
		Color:        color,
		CategoryType: domain.ParseCategoryType(req.CategoryType),
	}

	if err := h.repo.CreateCategory(ctx, category); err != nil {
		h.log.Error().Err(err).Str("name", name).Msg("Failed to create category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	for _, c := range domain.DefaultCategories() {
		if c.ID == id {
			middleware.WriteError(w, http.StatusBadRequest, "Default categories cannot be deleted")
			return
		}
	}

	if err := h.repo.DeleteCategory(ctx, userID, id); err != nil {
		switch {
		case errors.Is(err, bq.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Category not found")
		case errors.Is(err, bq.ErrDefaultCategory):
			middleware.WriteError(w, http.StatusBadRequest, "Default categories cannot be deleted")
		default:
			h.log.Error().Err(err).Str("category_id", id).Msg("Failed to delete category")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete category")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
