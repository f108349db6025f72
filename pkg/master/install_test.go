package master

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/cubesim/cubesim-go/pkg/flash"
	"github.com/cubesim/cubesim-go/pkg/log"
)

func makeImage(t *testing.T, n int) (string, []byte) {
	t.Helper()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	path := filepath.Join(t.TempDir(), "image.elf")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func newFlashMaster(t *testing.T, capacity int) (*Master, *flash.MemDevice, *flash.BlockCache, *recordingLogger) {
	t.Helper()
	dev, err := flash.NewMemDevice(capacity)
	require.NoError(t, err)
	cache, err := flash.NewBlockCache(dev, 4)
	require.NoError(t, err)

	rec := &recordingLogger{}
	m := newTestMaster(t, &loopFirmware{dest: addrZ})
	m.config.Flash = dev
	m.config.Cache = cache
	m.trace = rec
	return m, dev, cache, rec
}

func TestInstallImage(t *testing.T) {
	m, dev, cache, rec := newFlashMaster(t, 4096)
	path, data := makeImage(t, 1300)

	// Warm the cache so the invalidation is observable.
	buf := make([]byte, 16)
	require.NoError(t, cache.Read(0, buf))
	require.Equal(t, 1, cache.Len())

	require.NoError(t, m.InstallImage(path))

	got := make([]byte, len(data))
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, data, got)

	rest := make([]byte, 16)
	require.NoError(t, dev.Read(uint32(len(data)), rest))
	for _, b := range rest {
		assert.Equal(t, byte(flash.ErasedByte), b)
	}

	assert.Equal(t, uint64(1), dev.Erases())
	assert.Equal(t, uint64(3), dev.Writes(), "512 + 512 + 276")
	assert.Equal(t, uint64(1), cache.Stats().Invalidations)
	assert.Equal(t, 0, cache.Len())

	events := rec.byCategory(log.CategoryFlash)
	require.Len(t, events, 1)
	sum := blake2b.Sum256(data)
	assert.Equal(t, path, events[0].Install.Path)
	assert.Equal(t, len(data), events[0].Install.Bytes)
	assert.Equal(t, hex.EncodeToString(sum[:]), events[0].Install.Digest)
	assert.Empty(t, events[0].Install.Error)

	assert.Equal(t, ThreadIdle, m.State(), "an idle master stays idle")
}

func TestInstallImageExactChunks(t *testing.T) {
	m, dev, _, _ := newFlashMaster(t, 4096)
	path, _ := makeImage(t, 2*ImageChunkSize)

	require.NoError(t, m.InstallImage(path))
	assert.Equal(t, uint64(2), dev.Writes())
}

func TestInstallImageEmptyFile(t *testing.T) {
	m, dev, cache, _ := newFlashMaster(t, 4096)
	path, _ := makeImage(t, 0)

	require.NoError(t, m.InstallImage(path))
	assert.Equal(t, uint64(1), dev.Erases())
	assert.Equal(t, uint64(0), dev.Writes())
	assert.Equal(t, uint64(1), cache.Stats().Invalidations)
}

func TestInstallImageMissingSource(t *testing.T) {
	m, dev, cache, rec := newFlashMaster(t, 4096)

	err := m.InstallImage(filepath.Join(t.TempDir(), "missing.elf"))
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, uint64(0), dev.Erases(), "flash untouched")
	assert.Equal(t, uint64(1), cache.Stats().Invalidations)

	events := rec.byCategory(log.CategoryFlash)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Install.Error)
}

func TestInstallImageTooLarge(t *testing.T) {
	m, dev, cache, _ := newFlashMaster(t, 1024)
	path, data := makeImage(t, 1500)

	err := m.InstallImage(path)
	require.ErrorIs(t, err, ErrImageTooLarge)
	assert.ErrorIs(t, err, flash.ErrOutOfRange)
	assert.Equal(t, uint64(1), cache.Stats().Invalidations)

	// The chunks that fit were written.
	got := make([]byte, 1024)
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, data[:1024], got)
}

func TestInstallImageInvalidatesOnce(t *testing.T) {
	cache := &stubCache{}
	cache.On("Invalidate").Once()

	m, _, _, _ := newFlashMaster(t, 4096)
	m.config.Cache = cache
	path, _ := makeImage(t, 3000)

	require.NoError(t, m.InstallImage(path))
	cache.AssertExpectations(t)
}

func TestInstallImageRestartsRunningMaster(t *testing.T) {
	m, dev, _, _ := newFlashMaster(t, 4096)
	fw := m.config.Firmware.(*loopFirmware)
	path, data := makeImage(t, 700)

	m.Start()
	firstRun := m.RunID()
	require.Eventually(t, func() bool { return fw.produced.Load() > 3 }, 2*time.Second, time.Millisecond)

	require.NoError(t, m.InstallImage(path))
	assert.True(t, m.Running())
	assert.NotEqual(t, firstRun, m.RunID())

	m.Stop()

	got := make([]byte, len(data))
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, data, got)
}

func TestInstallImageRestartsAfterFailure(t *testing.T) {
	m, _, _, _ := newFlashMaster(t, 4096)

	m.Start()
	err := m.InstallImage(filepath.Join(t.TempDir(), "missing.elf"))
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.True(t, m.Running())
	m.Stop()
}

func TestInstallImageNoFlash(t *testing.T) {
	m := newTestMaster(t, &loopFirmware{dest: addrZ})
	assert.ErrorIs(t, m.InstallImage("whatever"), ErrNoFlash)
}
