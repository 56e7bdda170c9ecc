package web

// handlers_common.go holds request parsing helpers shared by the handlers.

import (
	"encoding/json"
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/logging"
)

// defaultRequestTimeout applies when the config leaves it unset.
const defaultRequestTimeout = 30 * time.Second

// maxFilterBody caps a JSON filter request body.
const maxFilterBody = 64 << 10

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// filterRequest is the JSON body of POST /api/filters.
type filterRequest struct {
	FreeText       string   `json:"freeText"`
	Gender         string   `json:"gender"`
	MinAge         ageField `json:"minAge"`
	MaxAge         ageField `json:"maxAge"`
	LikedSubstring string   `json:"likedSubstring"`
}

// ageField takes an age bound as a number, a string or null. Blank strings
// and null leave the bound unset; ParseFilters validates the rest.
type ageField string

func (a *ageField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = ageField(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*a = ageField(n)
	}
	return nil
}

// parseFilterInput reads filter controls from a JSON body or a form.
func parseFilterInput(w http.ResponseWriter, r *http.Request) (core.FilterInput, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req filterRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFilterBody))
		if err := dec.Decode(&req); err != nil {
			return core.FilterInput{}, fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidFilter, err)
		}
		return core.FilterInput{
			FreeText:       req.FreeText,
			Gender:         req.Gender,
			MinAge:         string(req.MinAge),
			MaxAge:         string(req.MaxAge),
			LikedSubstring: req.LikedSubstring,
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFilterBody)
	if err := r.ParseForm(); err != nil {
		return core.FilterInput{}, fmt.Errorf("%w: %v", core.ErrInvalidFilter, err)
	}
	return core.FilterInput{
		FreeText:       r.PostForm.Get("freeText"),
		Gender:         r.PostForm.Get("gender"),
		MinAge:         r.PostForm.Get("minAge"),
		MaxAge:         r.PostForm.Get("maxAge"),
		LikedSubstring: r.PostForm.Get("likedSubstring"),
	}, nil
}

// logRenderError records a failure after the response has started.
func logRenderError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
}
