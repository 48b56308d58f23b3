package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTags(t *testing.T) {
	t.Parallel()

	require.Nil(t, ExtractTags("no tags here"))
	require.Equal(t, []string{"picnic"}, ExtractTags("lunch #picnic at the park"))
	require.Equal(t, []string{"trip", "beach"}, ExtractTags("#trip #Beach #trip"))
}

func TestExtractTagsLowercases(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"birthday"}, ExtractTags("#BIRTHDAY"))
}

func TestAttendanceStatusValid(t *testing.T) {
	t.Parallel()

	require.True(t, Attend.Valid())
	require.True(t, Absence.Valid())
	require.False(t, AttendanceStatus("MAYBE").Valid())
	require.False(t, AttendanceStatus("").Valid())
}
