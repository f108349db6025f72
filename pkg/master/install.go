package master

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/cubesim/cubesim-go/pkg/flash"
	"github.com/cubesim/cubesim-go/pkg/log"
)

// InstallImage replaces the flash contents with the file at path.
//
// A running master is stopped first and restarted afterwards, whether or
// not the install succeeded. The flash block cache is invalidated once the
// write loop is over.
func (m *Master) InstallImage(path string) error {
	if m.config.Flash == nil {
		return ErrNoFlash
	}

	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	restart := m.Running()
	if restart {
		m.stop()
	}

	m.infoLog("FLASH: installing image", "path", path)
	n, digest, err := m.writeImage(path)

	if m.config.Cache != nil {
		m.config.Cache.Invalidate()
	}

	ev := &log.InstallEvent{Path: path, Bytes: n, Digest: digest}
	if err != nil {
		ev.Error = err.Error()
		m.errorLog("FLASH: install failed", "path", path, "error", err)
	} else {
		m.infoLog("FLASH: image installed", "path", path, "bytes", n, "blake2b", digest)
	}
	m.trace.Log(log.Event{
		Time:     m.clock.Elapsed(),
		Ticks:    uint64(m.clock.Now()),
		RunID:    m.RunID(),
		Category: log.CategoryFlash,
		Install:  ev,
	})

	if restart {
		m.start()
	}
	return err
}

// writeImage erases the flash and streams the file into it in
// ImageChunkSize pieces. It returns the number of bytes written and their
// BLAKE2b-256 digest.
func (m *Master) writeImage(path string) (int, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}

	m.config.Flash.ChipErase()

	buf := make([]byte, ImageChunkSize)
	var addr uint32
	for {
		n, rerr := io.ReadFull(f, buf)
		if n > 0 {
			if werr := m.config.Flash.Write(addr, buf[:n]); werr != nil {
				if errors.Is(werr, flash.ErrOutOfRange) {
					return int(addr), "", fmt.Errorf("%w: %s: %w", ErrImageTooLarge, path, werr)
				}
				return int(addr), "", fmt.Errorf("master: write flash at 0x%06x: %w", addr, werr)
			}
			h.Write(buf[:n])
			addr += uint32(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return int(addr), "", fmt.Errorf("master: read %s: %w", path, rerr)
		}
	}

	return int(addr), hex.EncodeToString(h.Sum(nil)), nil
}
