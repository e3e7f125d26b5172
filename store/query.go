package store

import (
	"context"
)

func queryOne[T any](ctx context.Context, e *Executor, scan func(scanner) (T, error), query string, args ...any) (T, error) {
	var zero T
	rows, err := e.Query(ctx, query, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, ErrNotFound
	}
	return scan(rows)
}

func queryAll[T any](ctx context.Context, e *Executor, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := e.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// execAffecting runs a write and maps zero affected rows onto ErrNotFound.
func execAffecting(ctx context.Context, e *Executor, query string, args ...any) error {
	res, err := e.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBlogPost(sc scanner) (BlogPost, error) {
	r, err := scanBlogPostRow(sc)
	if err != nil {
		return BlogPost{}, err
	}
	return blogPostFromRow(r), nil
}

func scanEvent(sc scanner) (Event, error) {
	r, err := scanEventRow(sc)
	if err != nil {
		return Event{}, err
	}
	return eventFromRow(r), nil
}

func scanGalleryImage(sc scanner) (GalleryImage, error) {
	r, err := scanGalleryImageRow(sc)
	if err != nil {
		return GalleryImage{}, err
	}
	return galleryImageFromRow(r), nil
}
