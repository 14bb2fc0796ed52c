package storage

import (
	"context"
	"fmt"

	"reddot-watch/feedsreader/internal/database"
	"reddot-watch/feedsreader/internal/models"
	"reddot-watch/feedsreader/internal/render"
)

// CatalogueRepository defines read operations on the feed catalogue.
type CatalogueRepository interface {
	Categories(ctx context.Context) ([]models.Category, error)
	// Feeds returns every feed, or only those of *categoryID when it is set.
	Feeds(ctx context.Context, categoryID *int64) ([]models.Feed, error)
}

// DocumentRepository gives access to the rendered feed documents.
type DocumentRepository interface {
	Documents() []*models.Document
	Page(id string) (render.Page, bool)
}

// catalogueRepository implements CatalogueRepository on the SQLite storage.
type catalogueRepository struct {
	storage *database.Storage
}

// NewRepository creates a new repository instance.
func NewRepository(storage *database.Storage) CatalogueRepository {
	return &catalogueRepository{storage: storage}
}

func (r *catalogueRepository) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := r.storage.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *catalogueRepository) Feeds(ctx context.Context, categoryID *int64) ([]models.Feed, error) {
	var (
		feeds []models.Feed
		err   error
	)
	if categoryID != nil {
		feeds, err = r.storage.FeedsByCategory(ctx, *categoryID)
	} else {
		feeds, err = r.storage.Feeds(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}
