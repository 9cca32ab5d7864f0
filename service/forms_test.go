package service

import (
	"testing"

	"projtrack/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectPatchColumns(t *testing.T) {
	patch, err := ParseProjectPatch([]byte(`{"developer":null,"units":"12","startDate":"2024-02-29","listKind":"ARCHIVE","extra":1}`))
	require.NoError(t, err)

	assert.True(t, patch.Has("developer"))
	assert.False(t, patch.Has("name"))
	cols := patch.Columns()
	assert.Len(t, cols, 4)
	assert.Nil(t, cols["developer"])
	assert.Equal(t, 12, cols["units"])
	assert.Equal(t, "ARCHIVE", cols["list_kind"])
	assert.Contains(t, cols, "start_date")
	assert.NotContains(t, cols, "name")
}

func TestParseIssuesAreCollected(t *testing.T) {
	_, err := ParseProjectInput([]byte(`{"execution":"lots","status":"NOPE","startDate":5}`))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []response.Issue{
		{Field: "name", Message: "is required"},
		{Field: "execution", Message: "must be an integer"},
		{Field: "startDate", Message: "must be a date (YYYY-MM-DD)"},
		{Field: "status", Message: "must be one of ACTIVE, ON_HOLD, COMPLETED, QUOTE_GIVEN"},
	}, verr.Issues)
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "-3", want: -3},
		{in: "50.0", want: 50},
		{in: "1e2", want: 100},
		{in: "12.5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "99999999999", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseInteger(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", d.Format("2006-01-02"))

	d, err = parseDate("2024-05-06T23:30:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", d.Format("2006-01-02"))

	_, err = parseDate("06/05/2024")
	assert.Error(t, err)
}
