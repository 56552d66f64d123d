// Package importer bulk loads the catalog from the CSV dumps in static/data.
// Rows are get-or-create: anything whose key already exists is left alone.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// genreTitle is a row of the title/genre join table.
type genreTitle struct {
	TitleID int64 `gorm:"primaryKey"`
	GenreID int64 `gorm:"primaryKey"`
}

func (genreTitle) TableName() string {
	return "genre_title"
}

// rowFunc converts one CSV record into the value to insert.
type rowFunc func(record []string) (any, error)

type file struct {
	name    string
	table   string
	columns int
	parse   rowFunc
}

// files lists the dumps in dependency order.
var files = []file{
	{"users.csv", "users", 7, parseUser},
	{"category.csv", "categories", 3, parseCategory},
	{"genre.csv", "genres", 3, parseGenre},
	{"titles.csv", "titles", 4, parseTitle},
	{"review.csv", "reviews", 6, parseReview},
	{"comments.csv", "comments", 5, parseComment},
	{"genre_title.csv", "", 3, parseGenreTitle},
}

// Result reports what happened to one file.
type Result struct {
	File     string
	Rows     int
	Inserted int64
	Skipped  bool // the file was not present
}

type Importer struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// Run imports every known file found in dir. Each file is loaded in its
// own transaction; the first failing file stops the run.
func (im *Importer) Run(ctx context.Context, dir string) ([]Result, error) {
	results := make([]Result, 0, len(files))
	for _, f := range files {
		res, err := im.importFile(ctx, dir, f)
		if err != nil {
			return results, fmt.Errorf("import %s: %w", f.name, err)
		}
		results = append(results, res)
		if res.Skipped {
			im.logger.WarnContext(ctx, "CSV file not found, skipping", "file", f.name)
			continue
		}
		im.logger.InfoContext(ctx, "CSV file imported", "file", f.name, "rows", res.Rows, "inserted", res.Inserted)
	}

	if im.db.Dialector.Name() == "postgres" {
		if err := im.resetSequences(ctx); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (im *Importer) importFile(ctx context.Context, dir string, f file) (Result, error) {
	res := Result{File: f.name}

	fh, err := os.Open(filepath.Join(dir, f.name))
	if errors.Is(err, fs.ErrNotExist) {
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return res, err
	}
	defer fh.Close()

	reader := csv.NewReader(fh)
	reader.FieldsPerRecord = f.columns
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("read header: %w", err)
	}

	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			res.Rows++

			value, err := f.parse(record)
			if err != nil {
				line, _ := reader.FieldPos(0)
				return fmt.Errorf("line %d: %w", line, err)
			}
			result := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(value)
			if result.Error != nil {
				return fmt.Errorf("row %d: %w", res.Rows, result.Error)
			}
			res.Inserted += result.RowsAffected
		}
	})
	return res, err
}

// resetSequences moves every serial past the imported ids so later inserts
// do not collide with them.
func (im *Importer) resetSequences(ctx context.Context) error {
	for _, f := range files {
		if f.table == "" {
			continue
		}
		sql := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s",
			f.table,
		)
		if err := im.db.WithContext(ctx).Exec(sql).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", f.table, err)
		}
	}
	return nil
}

func parseUser(r []string) (any, error) {
	id, err := parseID(r[0], "id")
	if err != nil {
		return nil, err
	}
	role, err := models.ParseRole(strings.TrimSpace(r[3]))
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        id,
		Username:  r[1],
		Email:     r[2],
		Role:      role,
		Bio:       r[4],
		FirstName: r[5],
		LastName:  r[6],
	}, nil
}

func parseCategory(r []string) (any, error) {
	id, err := parseID(r[0], "id")
	if err != nil {
		return nil, err
	}
	return &models.Category{ID: id, Name: r[1], Slug: r[2]}, nil
}

func parseGenre(r []string) (any, error) {
	id, err := parseID(r[0], "id")
	if err != nil {
		return nil, err
	}
	return &models.Genre{ID: id, Name: r[1], Slug: r[2]}, nil
}

func parseTitle(r []string) (any, error) {
	id, err := parseID(r[0], "id")
	if err != nil {
		return nil, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(r[2]))
	if err != nil {
		return nil, fmt.Errorf("year: %w", err)
	}
	title := &models.Title{ID: id, Name: r[1], Year: year}
	if strings.TrimSpace(r[3]) != "" {
		categoryID, err := parseID(r[3], "category")
		if err != nil {
			return nil, err
		}
		title.CategoryID = &categoryID
	}
	return title, nil
}

func parseReview(r []string) (any, error) {
	id, err := parseID(r[0], "id")
	if err != nil {
		return nil, err
	}
	titleID, err := parseID(r[1], "title_id")
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(r[3], "author")
	if err != nil {
		return nil, err
	}
	score, err := strconv.Atoi(strings.TrimSpace(r[4]))
	if err != nil || score < 1 || score > 10 {
		return nil, fmt.Errorf("score %q must be an integer between 1 and 10", r[4])
	}
	pubDate, err := parseTime(r[5])
	if err != nil {
		return nil, err
	}
	return &models.Review{ID: id, TitleID: titleID, Text: r[2], AuthorID: authorID, Score: score, PubDate: pubDate}, nil
}

func parseComment(r []string) (any, error) {
	id, err := parseID(r[0], "id")
	if err != nil {
		return nil, err
	}
	reviewID, err := parseID(r[1], "review_id")
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(r[3], "author")
	if err != nil {
		return nil, err
	}
	pubDate, err := parseTime(r[4])
	if err != nil {
		return nil, err
	}
	return &models.Comment{ID: id, ReviewID: reviewID, Text: r[2], AuthorID: authorID, PubDate: pubDate}, nil
}

func parseGenreTitle(r []string) (any, error) {
	titleID, err := parseID(r[1], "title_id")
	if err != nil {
		return nil, err
	}
	genreID, err := parseID(r[2], "genre_id")
	if err != nil {
		return nil, err
	}
	return &genreTitle{TitleID: titleID, GenreID: genreID}, nil
}

func parseID(s, column string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s: invalid id %q", column, s)
	}
	return id, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("pub_date: %w", err)
	}
	return t, nil
}
