// File: watch/watch_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/drv-shell/reactor"
)

func TestDirWatcherReportsCreateAndDelete(t *testing.T) {
	dir := t.TempDir()

	svc, err := reactor.NewService()
	require.NoError(t, err)
	defer svc.Close()

	w, err := New(svc)
	require.NoError(t, err)
	defer w.Close()

	var created, deleted []string
	require.NoError(t, w.Watch(dir, Handler{
		OnCreated: func(name string) { created = append(created, name) },
		OnDeleted: func(name string) { deleted = append(deleted, name) },
	}))

	sockPath := filepath.Join(dir, "widget.0.drv")
	f, err := os.Create(sockPath)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	pumpUntil(t, svc, func() bool { return len(created) == 1 })
	require.Equal(t, []string{"widget.0.drv"}, created)

	require.NoError(t, os.Remove(sockPath))
	pumpUntil(t, svc, func() bool { return len(deleted) == 1 })
	require.Equal(t, []string{"widget.0.drv"}, deleted)
}

func TestDirWatcherReportsSelfDelete(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "sub")
	require.NoError(t, os.Mkdir(dir, 0700))

	svc, err := reactor.NewService()
	require.NoError(t, err)
	defer svc.Close()

	w, err := New(svc)
	require.NoError(t, err)
	defer w.Close()

	selfDeleted := false
	require.NoError(t, w.Watch(dir, Handler{
		OnSelfDeleted: func() { selfDeleted = true },
	}))

	require.NoError(t, os.Remove(dir))
	pumpUntil(t, svc, func() bool { return selfDeleted })
	require.True(t, selfDeleted)
}

func pumpUntil(t *testing.T, svc *reactor.Service, done func() bool) {
	t.Helper()
	for i := 0; i < 1000 && !done(); i++ {
		if _, err := svc.RunOnce(50); err != nil {
			t.Fatalf("reactor poll: %v", err)
		}
	}
	require.True(t, done(), "condition never became true")
}
