package image

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirUploadAndDelete(t *testing.T) {
	t.Parallel()

	d := &Dir{Base: t.TempDir()}
	ctx := context.Background()

	require.NoError(t, d.Upload(ctx, "profile-1", strings.NewReader("png bytes")))

	b, err := os.ReadFile(filepath.Join(d.Base, "profile-1"))
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(b))

	require.NoError(t, d.Delete(ctx, "profile-1"))
	_, err = os.Stat(filepath.Join(d.Base, "profile-1"))
	require.True(t, os.IsNotExist(err))

	// deleting a missing key is not an error
	require.NoError(t, d.Delete(ctx, "profile-1"))
}
