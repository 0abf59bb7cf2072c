package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/atom"

	"finmail/internal/db"
)

const maxBodyBytes = 1 << 20

var (
	validate = newValidator()
	strict   = bluemonday.StrictPolicy()
	tagStart = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9-]*)`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the request body into dst. Malformed JSON is reported
// as a *db.ValidationError on the "body" field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "request body must be valid JSON"
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &typeErr):
			msg = fmt.Sprintf("%s has the wrong type", typeErr.Field)
		}
		return &db.ValidationError{Fields: []db.FieldError{{Field: "body", Message: msg}}}
	}
	return nil
}

// validateInput runs the struct's validate tags and converts failures to a
// *db.ValidationError keyed by JSON field name.
func validateInput(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]db.FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = db.FieldError{Field: fe.Field(), Message: fieldMessage(fe)}
	}
	return &db.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color such as #3b82f6"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}

// plainText strips markup from user supplied text, keeping the characters
// it displays as. Only known HTML elements count as markup, so
// "Invoice <ACME-123>" and "Jane <jane@acme.test>" come through unchanged.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(escapeNonHTML(s))))
}

// escapeNonHTML escapes every "<" that does not open or close a known HTML
// element.
func escapeNonHTML(s string) string {
	return tagStart.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.TrimPrefix(m[1:], "/")
		if atom.Lookup([]byte(strings.ToLower(name))) != 0 {
			return m
		}
		return "&lt;" + m[1:]
	})
}

func plainTextPtr(s *string) {
	if s != nil {
		*s = plainText(*s)
	}
}
