package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/comment-ranking-api/internal/models"
)

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case interface{ Scan(interface{}) error }:
			if err := p.Scan(r.values[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestScanComment(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	row := fakeRow{values: []interface{}{
		"cm_1", "P001", "U001", "tester", 4, "solid", []byte(`{"a.jpg","b.jpg"}`), 7, "approved", created, updated,
	}}

	comment, err := scanComment(row)
	if err != nil {
		t.Fatalf("scanComment failed: %v", err)
	}

	if comment.ID != "cm_1" || comment.ProductID != "P001" || comment.Rating != 4 || comment.Usefulness != 7 {
		t.Errorf("Unexpected comment fields: %+v", comment)
	}
	if len(comment.Images) != 2 || comment.Images[1] != "b.jpg" {
		t.Errorf("Expected 2 images, got %v", comment.Images)
	}
	if got, ok := comment.CreateTime.(time.Time); !ok || !got.Equal(created) {
		t.Errorf("Expected native createTime %v, got %v", created, comment.CreateTime)
	}
	if comment.UpdatedAt == nil || !comment.UpdatedAt.Equal(updated) {
		t.Errorf("Expected updatedAt %v, got %v", updated, comment.UpdatedAt)
	}
}

func TestScanComment_Error(t *testing.T) {
	want := errors.New("scan failed")
	if _, err := scanComment(fakeRow{err: want}); !errors.Is(err, want) {
		t.Errorf("Expected scan error, got %v", err)
	}
}

func TestCreatedAt(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if got := createdAt(&models.Comment{CreateTime: fixed}); !got.Equal(fixed) {
		t.Errorf("Expected %v, got %v", fixed, got)
	}
	if got := createdAt(&models.Comment{CreateTime: "2024-05-01T10:00:00Z"}); !got.Equal(fixed) {
		t.Errorf("Expected parsed %v, got %v", fixed, got)
	}

	before := time.Now()
	if got := createdAt(&models.Comment{CreateTime: "garbage"}); got.Before(before) {
		t.Errorf("Expected unreadable timestamp to fall back to now, got %v", got)
	}
}

func TestImagesOrEmpty(t *testing.T) {
	if got := imagesOrEmpty(nil); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", got)
	}
	if got := imagesOrEmpty([]string{"a"}); len(got) != 1 {
		t.Errorf("Expected images passed through, got %v", got)
	}
}
