package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/poltekatipdg/sipbmn-backend/api/middleware"
	"github.com/poltekatipdg/sipbmn-backend/api/responses"
	"github.com/poltekatipdg/sipbmn-backend/api/validators"
	"github.com/poltekatipdg/sipbmn-backend/internal/inventory"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
)

type createItemRequest struct {
	PropertyNumber int     `json:"propertyNumber" validate:"omitempty,min=0"`
	Name           string  `json:"name" validate:"required"`
	Brand          string  `json:"brand,omitempty"`
	Description    string  `json:"description,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`
	TotalQuantity  int     `json:"totalQuantity" validate:"min=0"`
	Condition      string  `json:"condition" validate:"required"`
	Visibility     string  `json:"visibility" validate:"required"`
	Category       string  `json:"category" validate:"required"`
}

type updateItemRequest struct {
	PropertyNumber *int    `json:"propertyNumber,omitempty"`
	Name           *string `json:"name,omitempty"`
	Brand          *string `json:"brand,omitempty"`
	Description    *string `json:"description,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`
	TotalQuantity  *int    `json:"totalQuantity,omitempty"`
	Condition      *string `json:"condition,omitempty"`
	Visibility     *string `json:"visibility,omitempty"`
	Category       *string `json:"category,omitempty"`
}

type itemResponse struct {
	ItemCode          int                  `json:"itemCode"`
	PropertyNumber    int                  `json:"propertyNumber"`
	Name              string               `json:"name"`
	Brand             string               `json:"brand,omitempty"`
	Description       string               `json:"description,omitempty"`
	ImageURL          *string              `json:"imageUrl,omitempty"`
	TotalQuantity     int                  `json:"totalQuantity"`
	AvailableQuantity int                  `json:"availableQuantity"`
	Condition         enums.ItemCondition  `json:"condition"`
	Visibility        enums.ItemVisibility `json:"visibility"`
	Category          enums.ItemCategory   `json:"category"`
	LowStock          bool                 `json:"lowStock"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

func newItemResponse(svc inventory.Service, item models.Item) itemResponse {
	return itemResponse{
		ItemCode:          item.ItemCode,
		PropertyNumber:    item.PropertyNumber,
		Name:              item.Name,
		Brand:             item.Brand,
		Description:       item.Description,
		ImageURL:          item.ImageURL,
		TotalQuantity:     item.TotalQuantity,
		AvailableQuantity: item.AvailableQuantity,
		Condition:         item.Condition,
		Visibility:        item.Visibility,
		Category:          item.Category,
		LowStock:          svc.LowStock(item),
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

// ListItems returns the catalog; borrowers only see visible items.
func ListItems(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())

		filter := inventory.ListFilter{
			Search:      strings.TrimSpace(r.URL.Query().Get("q")),
			VisibleOnly: !actor.IsAdmin(),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseItemCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filter.Category = &category
		}

		items, err := svc.ListItems(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]itemResponse, 0, len(items))
		for _, item := range items {
			views = append(views, newItemResponse(svc, item))
		}
		responses.WriteSuccess(w, views)
	}
}

// GetItem returns a single catalog entry.
func GetItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		itemCode, err := itemCodeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), itemCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if !actor.IsAdmin() && item.Visibility != enums.ItemVisibilityVisible {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "item not found"))
			return
		}

		responses.WriteSuccess(w, newItemResponse(svc, *item))
	}
}

// CreateItem registers a new asset in the catalog.
func CreateItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		condition, err := enums.ParseItemCondition(strings.TrimSpace(body.Condition))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
			return
		}
		visibility, err := enums.ParseItemVisibility(strings.TrimSpace(body.Visibility))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility"))
			return
		}
		category, err := enums.ParseItemCategory(strings.TrimSpace(body.Category))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		item, err := svc.AddItem(r.Context(), actor, inventory.AddItemInput{
			PropertyNumber: body.PropertyNumber,
			Name:           body.Name,
			Brand:          body.Brand,
			Description:    body.Description,
			ImageURL:       body.ImageURL,
			TotalQuantity:  body.TotalQuantity,
			Condition:      condition,
			Visibility:     visibility,
			Category:       category,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newItemResponse(svc, *item))
	}
}

// UpdateItem patches an existing catalog entry, including stock resizes.
func UpdateItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		itemCode, err := itemCodeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.UpdateItemInput{
			PropertyNumber: body.PropertyNumber,
			Name:           body.Name,
			Brand:          body.Brand,
			Description:    body.Description,
			ImageURL:       body.ImageURL,
			TotalQuantity:  body.TotalQuantity,
		}
		if body.Condition != nil {
			condition, err := enums.ParseItemCondition(strings.TrimSpace(*body.Condition))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
				return
			}
			input.Condition = &condition
		}
		if body.Visibility != nil {
			visibility, err := enums.ParseItemVisibility(strings.TrimSpace(*body.Visibility))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility"))
				return
			}
			input.Visibility = &visibility
		}
		if body.Category != nil {
			category, err := enums.ParseItemCategory(strings.TrimSpace(*body.Category))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			input.Category = &category
		}

		actor := middleware.ActorFromContext(r.Context())
		item, err := svc.UpdateItem(r.Context(), actor, itemCode, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newItemResponse(svc, *item))
	}
}

// DeleteItem removes an asset with no active loans.
func DeleteItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		itemCode, err := itemCodeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.DeleteItem(r.Context(), actor, itemCode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func itemCodeParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "itemCode")
	itemCode, err := strconv.Atoi(raw)
	if err != nil || itemCode < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid item code").WithDetails(map[string]any{"item_code": raw})
	}
	return itemCode, nil
}
