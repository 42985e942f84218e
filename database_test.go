// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/sycoca/internal/datastream"
)

func TestDatabase_EndToEnd(t *testing.T) {
	path := writeDB(t, buildAB())
	db, fs := openTestDB(t, path)

	a := fs.Services.ServiceByPath("app/a.desktop")
	require.NotNil(t, a)
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, "app/a.desktop", a.Path())

	b := fs.Services.ServiceByPath("app/b.desktop")
	require.NotNil(t, b)
	assert.Equal(t, "B", b.Name)

	assert.Nil(t, fs.Services.ServiceByPath("app/c.desktop"))

	var names []string
	for _, s := range fs.Services.AllServices() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"A", "B"}, names)

	assert.Equal(t, StateOK, db.State())
	assert.Equal(t, path, db.Path())
	assert.Equal(t, uint64(1), db.Generation())
	assert.False(t, db.Corrupted())
}

func TestDatabase_EntriesRoundTrip(t *testing.T) {
	fs := NewBuildFactories()
	svc := NewService("kde5/konsole.desktop")
	svc.Name = "Konsole"
	svc.Exec = "konsole %u"
	svc.Icon = "utilities-terminal"
	svc.Comment = "Terminal"
	svc.GenericName = "Terminal Emulator"
	svc.Terminal = true
	svc.WorkingDir = "/tmp"
	svc.Library = "konsolepart"
	svc.InitialPreference = 7
	svc.Keywords = []string{"shell", "prompt"}
	svc.Categories = []string{"System", "TerminalEmulator"}
	svc.MenuID = "kde5-konsole.desktop"
	svc.AddServiceType("Application")
	svc.ServiceTypes = append(svc.ServiceTypes, ServiceTypeAndPreference{Preference: 3, ServiceType: "text/plain"})
	svc.Properties = map[string]string{"X-DBUS-ServiceName": "org.kde.konsole"}
	svc.AllowAsDefault = false
	svc.NoDisplay = true
	require.True(t, fs.Services.AddEntry(svc))

	st := NewServiceType("KParts/ReadOnlyPart")
	st.Comment = "read-only part"
	st.ParentType = "KParts/Part"
	st.PropertyDefs = map[string]string{"X-KDE-Foo": "QString"}
	st.SourceFile = "kpart.desktop"
	require.True(t, fs.ServiceTypes.AddEntry(st))

	mt := NewMimeType("text/plain")
	mt.Comment = "Plain text"
	mt.Patterns = []string{"*.txt", "*.text"}
	require.True(t, fs.ServiceTypes.AddEntry(mt))

	g := NewServiceGroup("System/")
	g.Caption = "System"
	g.Icon = "applications-system"
	g.Comment = "System tools"
	g.DirectoryFile = "System.directory"
	require.True(t, fs.ServiceGroups.AddEntry(g))
	fs.ServiceGroups.AddChild("System/", svc.Path())

	_, rfs := openTestDB(t, writeDB(t, fs))

	opts := cmp.Options{
		cmpopts.IgnoreUnexported(Service{}, ServiceType{}, ServiceGroup{}),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(svc, rfs.Services.ServiceByPath(svc.Path()), opts); diff != "" {
		t.Errorf("service mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(st, rfs.ServiceTypes.ServiceType(st.Name()), opts); diff != "" {
		t.Errorf("service type mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(mt, rfs.ServiceTypes.MimeType(mt.Name()), opts); diff != "" {
		t.Errorf("mime type mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(g, rfs.ServiceGroups.Group("System"), opts); diff != "" {
		t.Errorf("group mismatch (-want +got):\n%s", diff)
	}

	// a name of the wrong type isn't returned
	assert.Nil(t, rfs.ServiceTypes.ServiceType("text/plain"))
	assert.Nil(t, rfs.ServiceTypes.MimeType("KParts/ReadOnlyPart"))
	assert.NotNil(t, rfs.ServiceTypes.Find("text/plain"))
}

func TestBuilder_SaveIsIdempotent(t *testing.T) {
	fs := buildAB()
	b := NewBuilder()
	fs.AddTo(b)

	var first, second datastream.Buffer
	require.NoError(t, b.Save(&first))
	require.NoError(t, b.Save(&second))
	assert.True(t, bytes.Equal(first.Bytes(), second.Bytes()))

	other := NewBuilder()
	buildAB().AddTo(other)
	var third datastream.Buffer
	require.NoError(t, other.Save(&third))
	assert.True(t, bytes.Equal(first.Bytes(), third.Bytes()))
}

func TestBuilder_Errors(t *testing.T) {
	fs := buildAB()
	fs.ServiceTypes.AddEntry(NewMimeType("text/plain"))
	fs.Services.EntryByPath("app/a.desktop").(*Service).AddServiceType("text/plain")

	// services resolve offers against already-saved types
	b := NewBuilder()
	b.AddFactory(fs.Services)
	b.AddFactory(fs.ServiceTypes)
	var buf datastream.Buffer
	err := b.Save(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errTypesNotSaved))

	b = NewBuilder()
	b.AddFactory(fs.Services)
	b.AddFactory(fs.Services)
	require.Error(t, b.Save(&datastream.Buffer{}))
}

func TestDatabase_Metadata(t *testing.T) {
	want := Metadata{
		Prefixes:        []string{"/usr", "/opt/kde"},
		Timestamp:       time.Unix(1700000000, 0),
		Language:        "de",
		UpdateSignature: 0xdeadbeef,
		ResourceDirs:    []string{"/usr/share/applications", "/usr/share/kservices5"},
	}
	b := NewBuilder()
	buildAB().AddTo(b)
	b.SetMetadata(want)
	path := filepath.Join(t.TempDir(), "sycoca.db")
	require.NoError(t, b.WriteFile(path))

	db, _ := openTestDB(t, path)
	got := db.Metadata()
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	got.Timestamp = want.Timestamp
	assert.Equal(t, want, got)
	assert.Equal(t, "de", db.Language())
	assert.Equal(t, uint32(0xdeadbeef), db.UpdateSignature())
	assert.Equal(t, want.Prefixes, db.Prefixes())
	assert.Equal(t, want.ResourceDirs, db.ResourceDirs())
}

func TestDatabase_VersionGate(t *testing.T) {
	path := writeDB(t, buildAB())
	for _, version := range []int32{FormatVersion - 1, FormatVersion + 1} {
		bad := patchFile(t, path, map[int64]int32{0: version})
		db, fs := openTestDB(t, bad)

		assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
		assert.Empty(t, fs.Services.AllServices())
		assert.Equal(t, StateUnavailable, db.State())

		err := db.Ready()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
		assert.True(t, errors.Is(err, ErrVersionMismatch))
	}
}

func TestDatabase_NoDatabase(t *testing.T) {
	db, fs := openTestDB(t, filepath.Join(t.TempDir(), "missing.db"))
	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.Equal(t, StateUnavailable, db.State())
	assert.True(t, errors.Is(db.Ready(), ErrNoDatabase))

	_, err := Open(WithPath(filepath.Join(t.TempDir(), "missing.db")), WithGlobalPath(""), WithInvoker(nil))
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestDatabase_DummyFallback(t *testing.T) {
	db, fs := openTestDB(t, filepath.Join(t.TempDir(), "missing.db"), WithDummyFallback())
	require.NoError(t, db.Ready())
	assert.True(t, db.IsDummy())
	assert.Equal(t, StateOK, db.State())
	assert.Empty(t, db.Path())
	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.Empty(t, fs.Services.AllServices())
	assert.Nil(t, fs.ServiceGroups.Root())
	assert.False(t, db.Corrupted())
}

func TestDatabase_RebuildWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sycoca.db")
	inv := &countingInvoker{fn: func() error {
		writeDBTo(t, buildAB(), path)
		return nil
	}}
	db, fs := openTestDB(t, path, WithInvoker(inv))

	require.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
	require.NotNil(t, fs.Services.ServiceByPath("app/b.desktop"))
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, StateOK, db.State())
}

func TestDatabase_RebuildAtMostOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sycoca.db")
	inv := &countingInvoker{fn: func() error { return errors.New("builder crashed") }}
	db, fs := openTestDB(t, path, WithInvoker(inv))

	for range 3 {
		assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	}
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, StateUnavailable, db.State())

	// a rebuild that writes an outdated file doesn't help either
	bad := patchFile(t, writeDB(t, buildAB()), map[int64]int32{0: FormatVersion + 1})
	inv2 := &countingInvoker{}
	db2, fs2 := openTestDB(t, bad, WithInvoker(inv2))
	assert.Nil(t, fs2.Services.ServiceByPath("app/a.desktop"))
	assert.Nil(t, fs2.Services.ServiceByPath("app/a.desktop"))
	assert.Equal(t, 1, inv2.calls)
	assert.True(t, errors.Is(db2.Ready(), ErrVersionMismatch))
}

func TestDatabase_NotifyChanged(t *testing.T) {
	path := writeDB(t, buildAB())
	db, fs := openTestDB(t, path)
	require.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
	require.Equal(t, uint64(1), db.Generation())

	next := NewBuildFactories()
	next.Services.AddEntry(app("app/c.desktop", "C"))
	writeDBTo(t, next, path)

	// the replaced file stays readable until we're told about it
	assert.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.Nil(t, fs.Services.ServiceByPath("app/c.desktop"))

	db.NotifyChanged("apps")
	assert.True(t, db.IsChanged("apps"))
	assert.False(t, db.IsChanged("services"))
	assert.Equal(t, StateNotOpen, db.State())

	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	c := fs.Services.ServiceByPath("app/c.desktop")
	require.NotNil(t, c)
	assert.Equal(t, "C", c.Name)
	assert.Equal(t, uint64(2), db.Generation())
}

func TestDatabase_NotifyChangedLeavesUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sycoca.db")
	db, fs := openTestDB(t, path)
	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	require.Equal(t, StateUnavailable, db.State())

	writeDBTo(t, buildAB(), path)
	db.NotifyChanged()
	assert.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
}

func TestDatabase_CorruptLinearIndex(t *testing.T) {
	path := writeDB(t, buildAB())
	hdr := factoryOffset(t, path, ServiceFactoryID)
	end := int64(readInt32(t, path, hdr+8))
	bad := patchFile(t, path, map[int64]int32{end: 0x7fffffff})

	db, fs := openTestDB(t, bad)
	assert.Empty(t, fs.Services.AllServices())
	assert.True(t, db.Corrupted())
	// the dicts are intact
	assert.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.Equal(t, StateOK, db.State())
}

func TestDatabase_CorruptDict(t *testing.T) {
	path := writeDB(t, buildAB())
	hdr := factoryOffset(t, path, ServiceFactoryID)
	dictOff := int64(readInt32(t, path, hdr))

	for _, size := range []int32{0x00100000, 0x7fffffff} {
		bad := patchFile(t, path, map[int64]int32{dictOff: size})
		db, fs := openTestDB(t, bad)
		assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
		assert.Empty(t, fs.Services.AllServices())
		assert.True(t, db.Corrupted())
		// other factories are unaffected
		assert.NotNil(t, fs.ServiceGroups.Root())
	}
}

func TestDatabase_CorruptHeader(t *testing.T) {
	path := writeDB(t, buildAB())
	hdr := factoryOffset(t, path, ServiceFactoryID)
	bad := patchFile(t, path, map[int64]int32{hdr + 4: 0x7ffffff0})

	db, fs := openTestDB(t, bad)
	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.True(t, db.Corrupted())
}

func TestDatabase_CorruptEntry(t *testing.T) {
	path := writeDB(t, buildAB())
	hdr := factoryOffset(t, path, ServiceFactoryID)
	begin := int64(readInt32(t, path, hdr+4))
	// the first entry's type tag
	bad := patchFile(t, path, map[int64]int32{begin: 99})

	db, fs := openTestDB(t, bad)
	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.True(t, db.Corrupted())
	assert.NotNil(t, fs.Services.ServiceByPath("app/b.desktop"))
	assert.Len(t, fs.Services.AllServices(), 1)
}

func TestDatabase_RebuildAfterCorruption(t *testing.T) {
	path := writeDB(t, buildAB())
	hdr := factoryOffset(t, path, ServiceFactoryID)
	end := int64(readInt32(t, path, hdr+8))
	bad := patchFile(t, path, map[int64]int32{end: -1})

	inv := &countingInvoker{fn: func() error {
		writeDBTo(t, buildAB(), bad)
		return nil
	}}
	db, fs := openTestDB(t, bad, WithInvoker(inv))

	assert.Empty(t, fs.Services.AllServices())
	assert.True(t, db.Corrupted())
	assert.Equal(t, 0, inv.calls)

	// the rebuild happens at the start of the next operation
	assert.Len(t, fs.Services.AllServices(), 2)
	assert.Equal(t, 1, inv.calls)
	assert.False(t, db.Corrupted())
	assert.Equal(t, uint64(2), db.Generation())
}

func TestDatabase_PathResolution(t *testing.T) {
	path := writeDB(t, buildAB())
	missing := filepath.Join(t.TempDir(), "missing.db")

	t.Run("env", func(t *testing.T) {
		db, fs := openTestDB(t, missing)
		t.Setenv(EnvPath, path)
		assert.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
		assert.Equal(t, path, db.Path())
	})

	t.Run("global fallback", func(t *testing.T) {
		db, fs := openTestDB(t, missing, WithGlobalPath(path))
		assert.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
		assert.Equal(t, path, db.Path())
	})

	t.Run("strategy", func(t *testing.T) {
		for _, s := range []string{"file", "mmap"} {
			db, fs := openTestDB(t, path)
			t.Setenv(EnvStrategy, s)
			assert.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"), s)
			assert.Equal(t, StateOK, db.State())
		}
		db, fs := openTestDB(t, path, WithStrategy(StrategyFile))
		assert.NotNil(t, fs.Services.ServiceByPath("app/b.desktop"))
		assert.Equal(t, StateOK, db.State())
	})
}

func TestDatabase_Close(t *testing.T) {
	db, fs := openTestDB(t, writeDB(t, buildAB()))
	require.NotNil(t, fs.Services.ServiceByPath("app/a.desktop"))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
	assert.Nil(t, fs.Services.ServiceByPath("app/a.desktop"))
	assert.True(t, errors.Is(db.Ready(), ErrClosed))
}

func TestDatabase_EntryCache(t *testing.T) {
	db, fs := openTestDB(t, writeDB(t, buildAB()), WithEntryCacheSize(4))
	a1 := fs.Services.ServiceByPath("app/a.desktop")
	a2 := fs.Services.ServiceByPath("app/a.desktop")
	require.NotNil(t, a1)
	assert.Same(t, a1, a2)

	db.NotifyChanged()
	a3 := fs.Services.ServiceByPath("app/a.desktop")
	require.NotNil(t, a3)
	assert.NotSame(t, a1, a3)

	_, nocache := openTestDB(t, writeDB(t, buildAB()), WithEntryCacheSize(0))
	assert.NotSame(t, nocache.Services.ServiceByPath("app/a.desktop"), nocache.Services.ServiceByPath("app/a.desktop"))
}
