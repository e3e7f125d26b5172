package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GalleryUpdate lists the fields a partial update changes. Position changes
// go through UpdateGalleryImage's newOrder argument instead.
type GalleryUpdate struct {
	Title       *Bilingual
	Description *Bilingual
	Image       *string
	IsActive    *bool
}

func (u GalleryUpdate) patch() Patch {
	var p Patch
	p.setBilingual("title", u.Title)
	p.setBilingual("description", u.Description)
	p.setString("image", u.Image)
	p.setBool("is_active", u.IsActive)
	return p
}

// ListGallery returns images in display order.
func (s *Store) ListGallery(ctx context.Context, f GalleryFilter) ([]GalleryImage, error) {
	q := "SELECT " + galleryImageColumns + " FROM gallery_images"
	if f.ActiveOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY display_order ASC, created_at ASC"

	images, err := queryAll(ctx, s.exec, scanGalleryImage, q)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	return images, nil
}

// GetGalleryImage returns an image by id or ErrNotFound.
func (s *Store) GetGalleryImage(ctx context.Context, id string) (GalleryImage, error) {
	img, err := queryOne(ctx, s.exec, scanGalleryImage,
		"SELECT "+galleryImageColumns+" FROM gallery_images WHERE id = ?", id)
	if err != nil {
		return GalleryImage{}, fmt.Errorf("get gallery image %s: %w", id, err)
	}
	return img, nil
}

// CreateGalleryImage inserts img at position, or appends it when position is
// nil. Images at or after the position move down by one.
func (s *Store) CreateGalleryImage(ctx context.Context, img GalleryImage, position *int) (GalleryImage, error) {
	now := s.now().UTC()
	img.ID = NewID(PrefixGalleryImage, now)
	img.Title = img.Title.Normalize()

	var desc Bilingual
	if img.Description != nil {
		desc = img.Description.Normalize()
	}

	err := s.exec.InTx(ctx, func(tx *Tx) error {
		if err := lockGallery(ctx, tx); err != nil {
			return err
		}
		n, err := galleryCount(ctx, tx)
		if err != nil {
			return err
		}
		pos := n
		if position != nil {
			pos = clamp(*position, 0, n)
		}
		if pos < n {
			if _, err := tx.Exec(ctx,
				"UPDATE gallery_images SET display_order = display_order + 1 WHERE display_order >= ?", pos); err != nil {
				return fmt.Errorf("shift gallery: %w", err)
			}
		}
		_, err = tx.Exec(ctx, `INSERT INTO gallery_images (`+galleryImageColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			img.ID, img.Title.EN, img.Title.FA, desc.EN, desc.FA, img.Image,
			pos, boolToInt(img.IsActive), formatTime(now), formatTime(now))
		return err
	})
	if err != nil {
		return GalleryImage{}, fmt.Errorf("create gallery image: %w", err)
	}
	return s.GetGalleryImage(ctx, img.ID)
}

// UpdateGalleryImage applies u and, when newOrder is set, moves the image to
// that position. Images between the old and new position shift by one so
// the order stays a dense permutation of 0..n-1.
func (s *Store) UpdateGalleryImage(ctx context.Context, id string, u GalleryUpdate, newOrder *int) (GalleryImage, error) {
	p := u.patch()
	err := s.exec.InTx(ctx, func(tx *Tx) error {
		if err := lockGallery(ctx, tx); err != nil {
			return err
		}
		old, err := galleryOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if newOrder != nil {
			n, err := galleryCount(ctx, tx)
			if err != nil {
				return err
			}
			k := clamp(*newOrder, 0, n-1)
			switch {
			case k < old:
				_, err = tx.Exec(ctx, `UPDATE gallery_images SET display_order = display_order + 1
					WHERE display_order >= ? AND display_order < ?`, k, old)
			case k > old:
				_, err = tx.Exec(ctx, `UPDATE gallery_images SET display_order = display_order - 1
					WHERE display_order > ? AND display_order <= ?`, old, k)
			}
			if err != nil {
				return fmt.Errorf("shift gallery: %w", err)
			}
			if k != old {
				p.set("display_order", k)
			}
		}
		q, args := p.updateSQL("gallery_images", id, formatTime(s.now()))
		_, err = tx.Exec(ctx, q, args...)
		return err
	})
	if err != nil {
		return GalleryImage{}, fmt.Errorf("update gallery image %s: %w", id, err)
	}
	return s.GetGalleryImage(ctx, id)
}

// DeleteGalleryImage removes the row and closes the gap it leaves in the
// order. The image file stays on disk.
func (s *Store) DeleteGalleryImage(ctx context.Context, id string) error {
	err := s.exec.InTx(ctx, func(tx *Tx) error {
		if err := lockGallery(ctx, tx); err != nil {
			return err
		}
		old, err := galleryOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM gallery_images WHERE id = ?", id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			"UPDATE gallery_images SET display_order = display_order - 1 WHERE display_order > ?", old)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete gallery image %s: %w", id, err)
	}
	return nil
}

// lockGallery serializes order changes. SQLite transactions already take the
// write lock on begin; postgres needs an explicit table lock.
func lockGallery(ctx context.Context, tx *Tx) error {
	if tx.dialect != DialectPostgres {
		return nil
	}
	_, err := tx.Exec(ctx, "LOCK TABLE gallery_images IN SHARE ROW EXCLUSIVE MODE")
	return err
}

func galleryCount(ctx context.Context, tx *Tx) (int, error) {
	var n int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM gallery_images").Scan(&n); err != nil {
		return 0, fmt.Errorf("count gallery: %w", err)
	}
	return n, nil
}

func galleryOrder(ctx context.Context, tx *Tx, id string) (int, error) {
	var order int
	err := tx.QueryRow(ctx, "SELECT display_order FROM gallery_images WHERE id = ?", id).Scan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return order, err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
