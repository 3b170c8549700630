package vfs

import (
	"testing"

	"github.com/Geenz/entropycore/contract"
	"github.com/stretchr/testify/require"
)

func TestDirectoryHandleCreateRemoveList(t *testing.T) {
	group := contract.New(8, nil)
	f := NewFacade(group, Config{})
	backend := newStubBackend("b")
	backend.files["/d/a.txt"] = []byte("1")
	f.SetDefaultBackend(backend)

	dh := f.CreateDirectoryHandle("/d")

	ch := dh.Create(true)
	drain(group)
	ch.Wait()
	require.Equal(t, Complete, ch.Status())

	lh := dh.List(ListOptions{})
	drain(group)
	lh.Wait()
	require.Equal(t, Complete, lh.Status())

	rh := dh.Remove(true)
	drain(group)
	rh.Wait()
	require.Equal(t, Complete, rh.Status())
}
