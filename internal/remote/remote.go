package remote

import (
	"context"
	"time"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	DeleteStatus bool      `json:"deleteStatus"`
	CreatedBy    string    `json:"createdBy"`
	Media        []Media   `json:"media,omitempty"`
}

type PostFields struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	DeleteStatus bool      `json:"deleteStatus"`
	CreatedBy    string    `json:"createdBy"`
}

type Media struct {
	ID           string    `json:"id"`
	Type         MediaType `json:"type"`
	URL          string    `json:"url"`
	DeleteStatus bool      `json:"deleteStatus"`
	RelatedPost  string    `json:"relatedPost"`
}

type NewMedia struct {
	Type         MediaType `json:"type"`
	URL          string    `json:"url"`
	DeleteStatus bool      `json:"deleteStatus"`
	RelatedPost  string    `json:"relatedPost"`
}

type PostService interface {
	CreatePost(ctx context.Context, fields PostFields) (*Post, error)
	UpdatePost(ctx context.Context, id string, fields PostFields) (*Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
}

type MediaService interface {
	CreateMedia(ctx context.Context, media NewMedia) (*Media, error)
	DeleteMedia(ctx context.Context, id string) error
}
