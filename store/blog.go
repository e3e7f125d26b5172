package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PostUpdate lists the fields a partial update changes. Nil fields are left
// untouched. A blank Content or Author clears it.
type PostUpdate struct {
	Title       *Bilingual
	Description *Bilingual
	Content     *Bilingual
	Author      *Bilingual
	Category    *string
	PublishDate *time.Time
	MainImage   *string
	Images      *[]string
	Featured    *bool
}

func (u PostUpdate) patch() Patch {
	var p Patch
	p.setBilingual("title", u.Title)
	p.setBilingual("description", u.Description)
	p.setBilingual("content", u.Content)
	p.setString("category", u.Category)
	if u.PublishDate != nil {
		p.set("publish_date", formatTime(*u.PublishDate))
	}
	p.setBilingual("author", u.Author)
	p.setString("main_image", u.MainImage)
	if u.Images != nil {
		p.set("images", encodeImages(*u.Images))
	}
	p.setBool("featured", u.Featured)
	return p
}

// ListPosts returns posts ordered by publish date, newest first.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) ([]BlogPost, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Category)))
	}
	if f.Featured != nil {
		where = append(where, "featured = ?")
		args = append(args, boolToInt(*f.Featured))
	}

	q := "SELECT " + blogPostColumns + " FROM blog_posts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY publish_date DESC, created_at DESC"
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = 1 << 30
		}
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, f.Offset)
	}

	posts, err := queryAll(ctx, s.exec, scanBlogPost, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost returns a post by id or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id string) (BlogPost, error) {
	p, err := queryOne(ctx, s.exec, scanBlogPost, "SELECT "+blogPostColumns+" FROM blog_posts WHERE id = ?", id)
	if err != nil {
		return BlogPost{}, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

// CreatePost inserts p with a generated id and timestamps and returns the
// stored post.
func (s *Store) CreatePost(ctx context.Context, p BlogPost) (BlogPost, error) {
	now := s.now().UTC()
	p.ID = NewID(PrefixBlogPost, now)
	p.CreatedAt, p.UpdatedAt = now, now
	if p.PublishDate.IsZero() {
		p.PublishDate = now
	}
	p.Title = p.Title.Normalize()
	p.Description = p.Description.Normalize()
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	if p.Images == nil {
		p.Images = []string{}
	}

	var content, author Bilingual
	if p.Content != nil {
		content = p.Content.Normalize()
	}
	if p.Author != nil {
		author = p.Author.Normalize()
	}
	p.Content = optionalBilingual(content.EN, content.FA)
	p.Author = optionalBilingual(author.EN, author.FA)

	_, err := s.exec.Exec(ctx, `INSERT INTO blog_posts (`+blogPostColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title.EN, p.Title.FA, p.Description.EN, p.Description.FA, content.EN, content.FA,
		p.Category, formatTime(p.PublishDate), author.EN, author.FA, p.MainImage, encodeImages(p.Images),
		boolToInt(p.Featured), formatTime(now), formatTime(now))
	if err != nil {
		return BlogPost{}, fmt.Errorf("create post: %w", err)
	}
	return s.GetPost(ctx, p.ID)
}

// UpdatePost applies u to the post and returns the updated row.
func (s *Store) UpdatePost(ctx context.Context, id string, u PostUpdate) (BlogPost, error) {
	if u.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*u.Category))
		u.Category = &c
	}
	p := u.patch()
	q, args := p.updateSQL("blog_posts", id, formatTime(s.now()))
	if err := execAffecting(ctx, s.exec, q, args...); err != nil {
		return BlogPost{}, fmt.Errorf("update post %s: %w", id, err)
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes the row only. Images the post referenced stay on disk.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := execAffecting(ctx, s.exec, "DELETE FROM blog_posts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}
