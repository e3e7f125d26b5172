package sitecms

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/blob"
	"github.com/eringen/sitecms/store"
)

// galleryRequest is the body of POST and PUT /api/gallery. Order is the
// target position; on create it inserts there instead of appending.
type galleryRequest struct {
	Title       *store.Bilingual `json:"title"`
	Description *store.Bilingual `json:"description"`
	Image       *string          `json:"image"`
	Order       *int             `json:"order" validate:"omitempty,min=0"`
	IsActive    *bool            `json:"isActive"`
}

func (a *App) handleListGallery(c echo.Context) error {
	active := queryBool(c, "active")
	images, err := a.Store.ListGallery(c.Request().Context(), store.GalleryFilter{
		ActiveOnly: active != nil && *active,
	})
	if err != nil {
		return storeError(err, "Gallery image")
	}
	return c.JSON(http.StatusOK, images)
}

func (a *App) handleGetGalleryImage(c echo.Context) error {
	img, err := a.Store.GetGalleryImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "Gallery image")
	}
	return c.JSON(http.StatusOK, img)
}

func (a *App) handleCreateGalleryImage(c echo.Context) error {
	var req galleryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireBilingual("title", req.Title); err != nil {
		return err
	}
	if err := checkBilingual("description", req.Description); err != nil {
		return err
	}
	if trimmed(req.Image) == "" {
		return badRequest("image is required")
	}
	image, err := a.resolveImage("image", *req.Image, blob.FolderGallery)
	if err != nil {
		return err
	}

	created, err := a.Store.CreateGalleryImage(c.Request().Context(), store.GalleryImage{
		Title:       *req.Title,
		Description: req.Description,
		Image:       image,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}, req.Order)
	if err != nil {
		return storeError(err, "Gallery image")
	}
	return c.JSON(http.StatusCreated, created)
}

func (a *App) handleUpdateGalleryImage(c echo.Context) error {
	var req galleryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkUpdateBilingual("title", req.Title); err != nil {
		return err
	}
	if err := checkBilingual("description", req.Description); err != nil {
		return err
	}
	if req.Image != nil && trimmed(req.Image) == "" {
		return badRequest("image cannot be empty")
	}

	u := store.GalleryUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	if req.Image != nil {
		image, err := a.resolveImage("image", *req.Image, blob.FolderGallery)
		if err != nil {
			return err
		}
		u.Image = &image
	}

	updated, err := a.Store.UpdateGalleryImage(c.Request().Context(), c.Param("id"), u, req.Order)
	if err != nil {
		return storeError(err, "Gallery image")
	}
	return c.JSON(http.StatusOK, updated)
}

// handleDeleteGalleryImage removes the row only; the file is left for the
// storage cleanup tools.
func (a *App) handleDeleteGalleryImage(c echo.Context) error {
	if err := a.Store.DeleteGalleryImage(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "Gallery image")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
