package etl

import (
	"strconv"
	"strings"

	"github.com/mpawlak/statsync/pkg/models"
)

// NormalizeValue applies the generic inference rules to one raw field:
// empty / "NA" / "null" become nil, anything that parses as a base-10 float
// becomes float64, everything else stays a string.
//
// Numeric-looking identifiers are coerced to numbers by rule 2. That matches
// the source data's behavior; key fields are taken from the raw row before
// inference (see DeriveKey), so document keys are never affected.
func NormalizeValue(raw string) interface{} {
	if raw == "" || raw == "NA" || raw == "null" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// Normalize converts a raw row into a Document for the given category.
// The field mapping is built with NormalizeValue; the key comes from
// DeriveKey on the raw row.
func Normalize(cat models.Category, rec models.RawRecord) (models.Document, error) {
	key, err := DeriveKey(cat, rec)
	if err != nil {
		return models.Document{}, &MalformedRecordError{Reason: err.Error()}
	}

	fields := make(map[string]interface{}, len(rec))
	for name, raw := range rec {
		fields[name] = NormalizeValue(raw)
	}
	return models.Document{Key: key, Fields: fields}, nil
}

// DeriveKey builds the deterministic document key by joining the category's
// natural-key fields with "_" in their fixed order. Two records with
// identical natural keys collide on purpose: re-ingesting a season replaces
// rather than duplicates.
func DeriveKey(cat models.Category, rec models.RawRecord) (string, error) {
	fields := cat.KeyFields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := rec[f]
		if !ok || v == "" || v == "NA" || v == "null" {
			return "", &MissingKeyFieldError{Field: f}
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "_"), nil
}
