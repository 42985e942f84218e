// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package testdata

import (
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	fsys := afero.NewMemMapFs()
	tree, err := Generate(fsys, "/share", Config{Apps: 50, MimeTypes: 10, Groups: 3}, NewRand(1))
	require.NoError(t, err)
	assert.Len(t, tree.Apps, 50)
	assert.Len(t, tree.MimeTypes, 10)

	for rel := range tree.Apps {
		ok, err := afero.Exists(fsys, path.Join("/share/applications", rel))
		require.NoError(t, err)
		assert.True(t, ok, rel)
	}
	for m, apps := range tree.Offers {
		assert.Contains(t, tree.MimeTypes, m)
		assert.NotEmpty(t, apps)
	}

	// the same seed yields the same tree
	again, err := Generate(afero.NewMemMapFs(), "/share", Config{Apps: 50, MimeTypes: 10, Groups: 3}, NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, tree, again)
}
