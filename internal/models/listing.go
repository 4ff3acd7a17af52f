package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CommentQuery describes a ranked listing request for one product
type CommentQuery struct {
	ProductID string
	SortBy    string
	Order     string
	Days      int // 0 disables the window filter
	Profile   string
	Page      int
	PageSize  int
}

// Weights is the wire form of composite ranking weights
type Weights struct {
	Rating  float64 `json:"rating"`
	Recency float64 `json:"recency"`
}

// RankRequest is the body of POST /v1/comments/rank
type RankRequest struct {
	Comments []*Comment `json:"comments"`
	SortBy   string     `json:"sortBy"`
	Order    string     `json:"order"`
	Days     int        `json:"days,omitempty"`
	Weights  *Weights   `json:"weights,omitempty"`
	Page     int        `json:"page,omitempty"`
	PageSize int        `json:"pageSize,omitempty"`
}

// UnmarshalJSON decodes a rank request. Each comment's rating and usefulness
// are read leniently: numeric strings are accepted, and anything that is not
// a whole number decodes as 0 instead of failing the request.
func (r *RankRequest) UnmarshalJSON(data []byte) error {
	type Alias RankRequest
	aux := struct {
		*Alias
		Comments []json.RawMessage `json:"comments"`
	}{Alias: (*Alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Comments = make([]*Comment, len(aux.Comments))
	for i, raw := range aux.Comments {
		comment, err := decodeLenientComment(raw)
		if err != nil {
			return err
		}
		r.Comments[i] = comment
	}
	return nil
}

func decodeLenientComment(raw json.RawMessage) (*Comment, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	type Alias Comment
	var comment Comment
	aux := struct {
		*Alias
		Rating     json.RawMessage `json:"rating"`
		Usefulness json.RawMessage `json:"usefulness"`
	}{Alias: (*Alias)(&comment)}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return nil, err
	}

	comment.Rating = lenientInt(aux.Rating)
	comment.Usefulness = lenientInt(aux.Usefulness)
	return &comment, nil
}

const maxLenientInt = 1 << 53

func lenientInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == math.Trunc(f) && math.Abs(f) <= maxLenientInt {
			return int(f)
		}
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

// RankedComment is a comment annotated with its sort score
type RankedComment struct {
	*Comment
	Score      float64 `json:"score"`
	CreatedAgo string  `json:"createdAgo,omitempty"`
}

// CommentPage is a paginated ranked listing
type CommentPage struct {
	ProductID  string           `json:"product_id,omitempty"`
	SortBy     string           `json:"sort_by"`
	Order      string           `json:"order"`
	Days       int              `json:"days,omitempty"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Comments   []*RankedComment `json:"comments"`
}

// ValidationError represents a single validation error on an imported line
type ValidationError struct {
	Line    int         `json:"line"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ImportResult summarizes a synchronous NDJSON import
type ImportResult struct {
	TotalRecords    int               `json:"total_records"`
	SuccessfulCount int               `json:"successful"`
	FailedCount     int               `json:"failed"`
	DurationMs      int64             `json:"duration_ms"`
	RowsPerSec      float64           `json:"rows_per_sec,omitempty"`
	Errors          []ValidationError `json:"errors,omitempty"`
	ErrorCount      int               `json:"error_count"`
}
