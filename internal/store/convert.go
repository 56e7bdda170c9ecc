package store

// convert.go maps roster values to and from pgx types.
//
// nil pointers become invalid (SQL NULL) values and back, so a field that
// was unknown in the save stays unknown in the history.

import (
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/simroster/internal/roster"
)

// toPgText converts an optional string. nil is NULL; "" is kept as "".
func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// toPgInt8 converts an optional int. nil is NULL.
func toPgInt8(i *int) pgtype.Int8 {
	if i == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(*i), Valid: true}
}

// toPgInt4 converts a counter. Values outside int32 are clamped.
func toPgInt4(i int) pgtype.Int4 {
	switch {
	case i > math.MaxInt32:
		i = math.MaxInt32
	case i < math.MinInt32:
		i = math.MinInt32
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func fromPgInt8(i pgtype.Int8) *int {
	if !i.Valid {
		return nil
	}
	n := int(i.Int64)
	return &n
}

// textOrEmpty returns the string of a nullable column, "" for NULL.
func textOrEmpty(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// recordColumns is the COPY column list for roster_records, in the order
// recordRow emits values.
var recordColumns = []string{
	"load_id", "position", "person_id",
	"first_name", "family_name", "gender",
	"birth_year", "birth_season", "birth_day",
	"age", "death_age",
	"liked_items", "disliked_items",
	"death_year", "death_season", "death_day",
}

// recordRow flattens a record for COPY.
func recordRow(loadID uuid.UUID, position int, r roster.Record) []any {
	id := r.ID
	return []any{
		toPgUUID(loadID), toPgInt4(position), toPgInt8(&id),
		toPgText(r.FirstName), toPgText(r.FamilyName), toPgText(r.Gender),
		toPgInt8(r.BirthYear), toPgInt8(r.BirthSeason), toPgInt8(r.BirthDay),
		toPgInt8(r.Age), toPgInt8(r.DeathAge),
		r.LikedItems, r.DislikedItems,
		toPgInt8(r.DeathYear), toPgInt8(r.DeathSeason), toPgInt8(r.DeathDay),
	}
}

// recordRows flattens records for COPY, keeping their view order.
func recordRows(loadID uuid.UUID, records []roster.Record) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = recordRow(loadID, i, r)
	}
	return rows
}
