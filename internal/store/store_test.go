package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestToPgText(t *testing.T) {
	assert.False(t, toPgText(nil).Valid)

	empty := toPgText(strp(""))
	assert.True(t, empty.Valid, "empty string is a value, not NULL")
	assert.Equal(t, "", empty.String)

	assert.Equal(t, pgtype.Text{String: "Bella", Valid: true}, toPgText(strp("Bella")))
}

func TestToPgInt8(t *testing.T) {
	assert.False(t, toPgInt8(nil).Valid)
	assert.Equal(t, pgtype.Int8{Int64: 0, Valid: true}, toPgInt8(intp(0)))
	assert.Equal(t, pgtype.Int8{Int64: -4, Valid: true}, toPgInt8(intp(-4)))
}

func TestToPgInt4_Clamps(t *testing.T) {
	assert.Equal(t, int32(12), toPgInt4(12).Int32)
	assert.Equal(t, int32(2147483647), toPgInt4(1<<40).Int32)
	assert.Equal(t, int32(-2147483648), toPgInt4(-(1 << 40)).Int32)
}

func TestFromPg_RoundTripsNulls(t *testing.T) {
	assert.Nil(t, fromPgText(pgtype.Text{}))
	assert.Nil(t, fromPgInt8(pgtype.Int8{}))

	s := fromPgText(toPgText(strp("Goth")))
	require.NotNil(t, s)
	assert.Equal(t, "Goth", *s)

	n := fromPgInt8(toPgInt8(intp(30)))
	require.NotNil(t, n)
	assert.Equal(t, 30, *n)
}

func TestOptionalText(t *testing.T) {
	assert.False(t, optionalText("").Valid)
	assert.Equal(t, "127.0.0.1", optionalText("127.0.0.1").String)
	assert.Equal(t, "", textOrEmpty(pgtype.Text{}))
}

func TestRecordRows(t *testing.T) {
	loadID := uuid.New()
	records := []roster.Record{
		{ID: 7, FirstName: strp("Bella"), Age: intp(30), LikedItems: "Chess, 99"},
		{ID: 3},
	}

	rows := recordRows(loadID, records)
	require.Len(t, rows, 2)

	for i, row := range rows {
		assert.Len(t, row, len(recordColumns), "row %d width", i)
		assert.Equal(t, toPgUUID(loadID), row[0])
		assert.Equal(t, toPgInt4(i), row[1], "position keeps view order")
	}

	first := rows[0]
	assert.Equal(t, pgtype.Int8{Int64: 7, Valid: true}, first[2])
	assert.Equal(t, pgtype.Text{String: "Bella", Valid: true}, first[3])
	assert.False(t, first[4].(pgtype.Text).Valid, "missing family name is NULL")
	assert.Equal(t, pgtype.Int8{Int64: 30, Valid: true}, first[9])
	assert.Equal(t, "Chess, 99", first[11])
	assert.Equal(t, "", first[12])
}

func TestRecordColumns_MatchRecordRow(t *testing.T) {
	row := recordRow(uuid.New(), 0, roster.Record{})
	assert.Equal(t, len(recordColumns), len(row))
	assert.Equal(t, "load_id", recordColumns[0])
	assert.Equal(t, "death_day", recordColumns[len(recordColumns)-1])
}

// TestStore_Postgres runs against a live database when
// ROSTER_TEST_DATABASE_URL is set.
func TestStore_Postgres(t *testing.T) {
	url := os.Getenv("ROSTER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROSTER_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, PoolConfig{URL: url, MaxConns: 2})
	require.NoError(t, err)
	defer pool.Close()

	s := New(pool)
	require.NoError(t, s.EnsureSchema(ctx))

	entry := core.HistoryEntry{
		LoadID:      uuid.New(),
		Generation:  1,
		FileName:    "save.xml",
		CurrentYear: 40,
		Persons:     2,
		Records:     2,
		LoadedAt:    time.Now().UTC().Truncate(time.Microsecond),
		DurationMs:  12,
	}
	records := []roster.Record{
		{ID: 1, FirstName: strp("Bella"), Age: intp(30), LikedItems: "Chess"},
		{ID: 2, Gender: strp("Male")},
	}
	require.NoError(t, s.RecordLoad(ctx, entry, records))

	loads, err := s.ListLoads(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, loads)
	assert.Equal(t, entry.LoadID, loads[0].LoadID)
	assert.Equal(t, "", loads[0].ClientIP)

	got, err := s.LoadRecords(ctx, entry.LoadID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = s.LoadRecords(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrLoadNotFound)

	n, err := s.PruneBefore(ctx, entry.LoadedAt.Add(time.Second))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = s.LoadRecords(ctx, entry.LoadID)
	assert.ErrorIs(t, err, ErrLoadNotFound)
}
