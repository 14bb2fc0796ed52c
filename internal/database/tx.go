package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"reddot-watch/feedsreader/internal/models"
)

// Tx exposes the write operations available inside Storage.InTx.
type Tx struct {
	tx  *sqlx.Tx
	ctx context.Context
}

// EnsureCategory returns the ID of the category titled title, creating it
// when it does not exist yet.
func (t *Tx) EnsureCategory(title string) (int64, error) {
	var id int64
	err := t.tx.GetContext(t.ctx, &id, "SELECT Id FROM Category WHERE Title = ?;", title)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return insertCategory(t.ctx, t.tx, models.Category{Title: title})
}

// FeedExists reports whether a feed with the given XML URL is stored.
func (t *Tx) FeedExists(xmlURL string) (bool, error) {
	var n int
	if err := t.tx.GetContext(t.ctx, &n, "SELECT COUNT(*) FROM Feed WHERE XmlUrl = ?;", xmlURL); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertFeed stores f and returns its ID.
func (t *Tx) InsertFeed(f models.Feed) (int64, error) {
	return insertFeed(t.ctx, t.tx, f)
}

func insertCategory(ctx context.Context, ex sqlx.ExecerContext, c models.Category) (int64, error) {
	res, err := ex.ExecContext(ctx,
		"INSERT INTO Category (Id, Title) VALUES (?, ?);",
		nullableID(c.ID), c.Title)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertFeed(ctx context.Context, ex sqlx.ExecerContext, f models.Feed) (int64, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO Feed (Id, CategoryId, Title, Type, HtmlUrl, XmlUrl)
		VALUES (?, ?, ?, ?, ?, ?);`,
		nullableID(f.ID), f.CategoryID, f.Title, f.Type, f.HTMLURL, f.XMLURL)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// nullableID turns a zero ID into NULL so SQLite assigns the row ID.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
