package frame

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualsPropagatesNull(t *testing.T) {
	c := NewStringColumn("closed", []null.String{null.StringFrom("YES"), null.StringFrom("NO"), {}})
	b := Equals(c, "YES")
	assert.Equal(t, KindBool, b.Kind())
	assert.True(t, b.Bool(0).Bool)
	assert.False(t, b.Bool(1).Bool)
	assert.True(t, b.IsNull(2))
}

func TestLowerTrim(t *testing.T) {
	c := Strings("addr", "  123 MAIN ST  ", "\tÉLAN AVE ")
	l, err := Lower(c)
	require.NoError(t, err)
	tr, err := Trim(l)
	require.NoError(t, err)
	assert.Equal(t, "123 main st", tr.String(0).String)
	assert.Equal(t, "\télan ave", tr.String(1).String, "only spaces are trimmed")

	_, err = Lower(NewIntColumn("n", []null.Int64{null.Int64From(1)}))
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestDivideBy(t *testing.T) {
	c := NewFloatColumn("late", []null.Float64{null.Float64From(14), null.Float64From(-3.5), {}})
	w, err := DivideBy(c, 7)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, w.Float(0).Float64, 1e-12)
	assert.InDelta(t, -0.5, w.Float(1).Float64, 1e-12)
	assert.True(t, w.IsNull(2))

	z, err := DivideBy(c, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, z.NullCount())
}

func TestToTimestampAndDateDiff(t *testing.T) {
	opened := Strings("opened", "1/1/18 0:42", "12/31/17 23:59", "garbage")
	closed := Strings("closed", "1/3/18 0:01", "1/1/18 0:00", "1/1/18 0:00")

	o, failed, err := ToTimestamp(opened, "1/2/06 15:04", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, KindTimestamp, o.Kind())
	assert.Equal(t, "2018-01-01 00:42:00", o.Format(0))
	assert.True(t, o.IsNull(2))

	c, _, err := ToTimestamp(closed, "1/2/06 15:04", time.UTC)
	require.NoError(t, err)

	d, err := DateDiff(c, o)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Int(0).Int64)
	assert.Equal(t, int64(1), d.Int(1).Int64, "one minute across midnight is one day")
	assert.True(t, d.IsNull(2))

	ref := time.Date(2018, 8, 8, 0, 0, 0, 0, time.UTC)
	age, err := DateDiffFrom(ref, o)
	require.NoError(t, err)
	assert.Equal(t, int64(219), age.Int(0).Int64)

	_, err = DateDiff(opened, o)
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestToTimestampTwoDigitYears(t *testing.T) {
	c, failed, err := ToTimestamp(Strings("d", "1/1/70 0:00", "2/29/96 12:00", "12/31/68 23:59"), "1/2/06 15:04", time.UTC)
	require.NoError(t, err)
	assert.Zero(t, failed)
	assert.Equal(t, "2070-01-01 00:00:00", c.Format(0))
	assert.Equal(t, "2096-02-29 12:00:00", c.Format(1))
	assert.Equal(t, "2068-12-31 23:59:00", c.Format(2))

	full, _, err := ToTimestamp(Strings("d", "1/1/1970 0:00"), "1/2/2006 15:04", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01 00:00:00", full.Format(0))
}

func TestDateDiffUsesLocalCalendar(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	o, _, err := ToTimestamp(Strings("opened", "1/1/18 23:30"), "1/2/06 15:04", chicago)
	require.NoError(t, err)
	c, _, err := ToTimestamp(Strings("closed", "1/2/18 0:10"), "1/2/06 15:04", chicago)
	require.NoError(t, err)
	assert.Equal(t, chicago, o.Time(0).Time.Location())

	d, err := DateDiff(c, o)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Int(0).Int64)

	age, err := DateDiffFrom(time.Date(2018, 8, 8, 0, 0, 0, 0, time.UTC), o)
	require.NoError(t, err)
	assert.Equal(t, int64(219), age.Int(0).Int64)
}

func TestWhenNullConditionTakesOtherwise(t *testing.T) {
	cond := NewBoolColumn("c", []null.Bool{null.BoolFrom(true), null.BoolFrom(false), {}})
	then := NewIntColumn("then", []null.Int64{null.Int64From(1), null.Int64From(2), null.Int64From(3)})
	other := NewIntColumn("other", []null.Int64{null.Int64From(10), null.Int64From(20), {}})

	w, err := When(cond, then, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.Int(0).Int64)
	assert.Equal(t, int64(20), w.Int(1).Int64)
	assert.True(t, w.IsNull(2))

	// inputs are not modified
	assert.Equal(t, int64(10), other.Int(0).Int64)

	_, err = When(then, then, other)
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestCast(t *testing.T) {
	ints := NewIntColumn("district", []null.Int64{null.Int64From(0), null.Int64From(5), {}})
	s, err := Cast(ints, KindString)
	require.NoError(t, err)
	assert.Equal(t, KindString, s.Kind())
	assert.Equal(t, "5", s.String(1).String)
	assert.True(t, s.IsNull(2))

	back, err := Cast(Strings("n", "12", "x", " 7 "), KindInt)
	require.NoError(t, err)
	assert.Equal(t, int64(12), back.Int(0).Int64)
	assert.True(t, back.IsNull(1))
	assert.Equal(t, int64(7), back.Int(2).Int64)

	dates, err := Cast(Strings("d", "2018-08-08 13:00:00"), KindDate)
	require.NoError(t, err)
	assert.Equal(t, "2018-08-08", dates.Format(0))

	b, err := Cast(Strings("b", "TRUE", "no"), KindBool)
	require.NoError(t, err)
	assert.True(t, b.Bool(0).Bool)
	assert.True(t, b.IsNull(1))
}
