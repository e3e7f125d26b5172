package store

import (
	"encoding/json"
	"time"
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// optionalBilingual maps a pair of columns onto nil when both are empty.
func optionalBilingual(en, fa string) *Bilingual {
	if en == "" && fa == "" {
		return nil
	}
	return &Bilingual{EN: en, FA: fa}
}

// decodeImages parses a JSON string array column. Malformed JSON yields an
// empty list rather than an error.
func decodeImages(s string) []string {
	var images []string
	if err := json.Unmarshal([]byte(s), &images); err != nil || images == nil {
		return []string{}
	}
	return images
}

func encodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(b)
}

type scanner interface {
	Scan(dest ...any) error
}

// blogPostRow is the flat column shape of blog_posts.
type blogPostRow struct {
	ID            string
	TitleEN       string
	TitleFA       string
	DescriptionEN string
	DescriptionFA string
	ContentEN     string
	ContentFA     string
	Category      string
	PublishDate   string
	AuthorEN      string
	AuthorFA      string
	MainImage     string
	Images        string
	Featured      int
	CreatedAt     string
	UpdatedAt     string
}

const blogPostColumns = `id, title_en, title_fa, description_en, description_fa, content_en, content_fa,
	category, publish_date, author_en, author_fa, main_image, images, featured, created_at, updated_at`

func scanBlogPostRow(sc scanner) (blogPostRow, error) {
	var r blogPostRow
	err := sc.Scan(&r.ID, &r.TitleEN, &r.TitleFA, &r.DescriptionEN, &r.DescriptionFA, &r.ContentEN, &r.ContentFA,
		&r.Category, &r.PublishDate, &r.AuthorEN, &r.AuthorFA, &r.MainImage, &r.Images, &r.Featured, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func blogPostFromRow(r blogPostRow) BlogPost {
	return BlogPost{
		ID:          r.ID,
		Title:       Bilingual{EN: r.TitleEN, FA: r.TitleFA},
		Description: Bilingual{EN: r.DescriptionEN, FA: r.DescriptionFA},
		Content:     optionalBilingual(r.ContentEN, r.ContentFA),
		Category:    r.Category,
		PublishDate: parseTime(r.PublishDate),
		Author:      optionalBilingual(r.AuthorEN, r.AuthorFA),
		MainImage:   r.MainImage,
		Images:      decodeImages(r.Images),
		Featured:    r.Featured != 0,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
}

// eventRow is the flat column shape of events.
type eventRow struct {
	ID         string
	TitleEN    string
	TitleFA    string
	MessageEN  string
	MessageFA  string
	Type       string
	StartDate  string
	EndDate    string
	IsActive   int
	Link       string
	Icon       string
	Image      string
	Priority   int
	ClickCount int64
	CreatedAt  string
	UpdatedAt  string
}

const eventColumns = `id, title_en, title_fa, message_en, message_fa, type, start_date, end_date,
	is_active, link, icon, image, priority, click_count, created_at, updated_at`

func scanEventRow(sc scanner) (eventRow, error) {
	var r eventRow
	err := sc.Scan(&r.ID, &r.TitleEN, &r.TitleFA, &r.MessageEN, &r.MessageFA, &r.Type, &r.StartDate, &r.EndDate,
		&r.IsActive, &r.Link, &r.Icon, &r.Image, &r.Priority, &r.ClickCount, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func eventFromRow(r eventRow) Event {
	return Event{
		ID:         r.ID,
		Title:      Bilingual{EN: r.TitleEN, FA: r.TitleFA},
		Message:    Bilingual{EN: r.MessageEN, FA: r.MessageFA},
		Type:       EventType(r.Type),
		StartDate:  parseTime(r.StartDate),
		EndDate:    parseTime(r.EndDate),
		IsActive:   r.IsActive != 0,
		Link:       r.Link,
		Icon:       r.Icon,
		Image:      r.Image,
		Priority:   r.Priority,
		ClickCount: r.ClickCount,
		CreatedAt:  parseTime(r.CreatedAt),
		UpdatedAt:  parseTime(r.UpdatedAt),
	}
}

// galleryImageRow is the flat column shape of gallery_images.
type galleryImageRow struct {
	ID            string
	TitleEN       string
	TitleFA       string
	DescriptionEN string
	DescriptionFA string
	Image         string
	DisplayOrder  int
	IsActive      int
	CreatedAt     string
	UpdatedAt     string
}

const galleryImageColumns = `id, title_en, title_fa, description_en, description_fa, image,
	display_order, is_active, created_at, updated_at`

func scanGalleryImageRow(sc scanner) (galleryImageRow, error) {
	var r galleryImageRow
	err := sc.Scan(&r.ID, &r.TitleEN, &r.TitleFA, &r.DescriptionEN, &r.DescriptionFA, &r.Image,
		&r.DisplayOrder, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func galleryImageFromRow(r galleryImageRow) GalleryImage {
	return GalleryImage{
		ID:          r.ID,
		Title:       Bilingual{EN: r.TitleEN, FA: r.TitleFA},
		Description: optionalBilingual(r.DescriptionEN, r.DescriptionFA),
		Image:       r.Image,
		Order:       r.DisplayOrder,
		IsActive:    r.IsActive != 0,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
}
