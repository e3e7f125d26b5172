package sitecms

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/blob"
	"github.com/eringen/sitecms/store"
)

// postRequest is the body of POST and PUT /api/blog. Absent fields are nil;
// on update only present fields change.
type postRequest struct {
	Title       *store.Bilingual `json:"title"`
	Description *store.Bilingual `json:"description"`
	Content     *store.Bilingual `json:"content"`
	Author      *store.Bilingual `json:"author"`
	Category    *string          `json:"category" validate:"omitempty,max=50"`
	PublishDate *string          `json:"publishDate"`
	MainImage   *string          `json:"mainImage"`
	Images      *[]string        `json:"images" validate:"omitempty,max=50"`
	Featured    *bool            `json:"featured"`
}

func (a *App) handleListPosts(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return err
	}
	posts, err := a.Store.ListPosts(c.Request().Context(), store.PostFilter{
		Category: c.QueryParam("category"),
		Featured: queryBool(c, "featured"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return storeError(err, "Blog post")
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(err, "Blog post")
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleCreatePost(c echo.Context) error {
	var req postRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := requireBilingual("title", req.Title); err != nil {
		return err
	}
	if err := requireBilingual("description", req.Description); err != nil {
		return err
	}
	if err := checkBilingual("content", req.Content); err != nil {
		return err
	}
	if err := checkBilingual("author", req.Author); err != nil {
		return err
	}
	if trimmed(req.Category) == "" {
		return badRequest("category is required")
	}

	post := store.BlogPost{
		Title:       *req.Title,
		Description: *req.Description,
		Content:     req.Content,
		Author:      req.Author,
		Category:    trimmed(req.Category),
		Featured:    req.Featured != nil && *req.Featured,
	}
	if req.PublishDate != nil && strings.TrimSpace(*req.PublishDate) != "" {
		t, err := parseDate("publishDate", *req.PublishDate, false)
		if err != nil {
			return err
		}
		post.PublishDate = t
	}
	if req.MainImage != nil {
		u, err := a.resolveImage("mainImage", *req.MainImage, blob.FolderBlog)
		if err != nil {
			return err
		}
		post.MainImage = u
	}
	if req.Images != nil {
		images, err := a.resolveImages("images", *req.Images, blob.FolderBlog)
		if err != nil {
			return err
		}
		post.Images = images
	}

	created, err := a.Store.CreatePost(c.Request().Context(), post)
	if err != nil {
		return storeError(err, "Blog post")
	}
	a.Feeds.Invalidate()
	return c.JSON(http.StatusCreated, created)
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var req postRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkUpdateBilingual("title", req.Title); err != nil {
		return err
	}
	if err := checkUpdateBilingual("description", req.Description); err != nil {
		return err
	}
	if err := checkBilingual("content", req.Content); err != nil {
		return err
	}
	if err := checkBilingual("author", req.Author); err != nil {
		return err
	}
	if req.Category != nil && trimmed(req.Category) == "" {
		return badRequest("category cannot be empty")
	}

	u := store.PostUpdate{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Author:      req.Author,
		Category:    req.Category,
		Featured:    req.Featured,
	}
	if req.PublishDate != nil {
		t, err := parseDate("publishDate", *req.PublishDate, false)
		if err != nil {
			return err
		}
		u.PublishDate = &t
	}
	if req.MainImage != nil {
		img, err := a.resolveImage("mainImage", *req.MainImage, blob.FolderBlog)
		if err != nil {
			return err
		}
		u.MainImage = &img
	}
	if req.Images != nil {
		images, err := a.resolveImages("images", *req.Images, blob.FolderBlog)
		if err != nil {
			return err
		}
		u.Images = &images
	}

	updated, err := a.Store.UpdatePost(c.Request().Context(), c.Param("id"), u)
	if err != nil {
		return storeError(err, "Blog post")
	}
	a.Feeds.Invalidate()
	return c.JSON(http.StatusOK, updated)
}

func (a *App) handleDeletePost(c echo.Context) error {
	if err := a.Store.DeletePost(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(err, "Blog post")
	}
	a.Feeds.Invalidate()
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// postTime is the sort key used by feeds.
func postTime(p store.BlogPost) time.Time {
	if !p.PublishDate.IsZero() {
		return p.PublishDate
	}
	return p.CreatedAt
}
