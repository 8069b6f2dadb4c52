// Package storage persists the controller settings on LittleFS.
// It handles atomic writes, version checking, and cleanup of temporary files.
package storage

import (
	"encoding/binary"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/tuffrabit/tinygo-doncon-rp2040/pkg/settings"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	settingsDir  = "/settings"
	settingsFile = "/settings/settings.bin"
	tempSuffix   = ".tmp"
)

// overhead is a rough per-file LittleFS cost used for usage estimates.
const overhead = 32

var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidSettings  = errors.New("invalid settings data")
	ErrVersionMismatch  = errors.New("settings version mismatch")
)

// Manager handles settings persistence using LittleFS.
type Manager struct {
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
	wiped    bool
}

// Stats provides information about storage usage.
type Stats struct {
	TotalSpace  int64
	UsedSpace   int64
	FreeSpace   int64
	HasSettings bool
	Wiped       bool // settings were dropped at boot because of a version change
}

// New initializes the storage system with the given block device.
// It mounts the filesystem and performs boot-time cleanup.
// If format is true and mount fails, it will format the filesystem.
func New(blockDev tinyfs.BlockDevice, format bool) (*Manager, error) {
	lfs := littlefs.New(blockDev)

	// Conservative settings for RP2040 flash
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	err := lfs.Mount()
	if err != nil {
		if !format {
			return nil, err
		}
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
	}

	// A failed cleanup only leaves a stray temp file behind.
	m.bootCleanup()

	if err := m.checkVersion(); errors.Is(err, ErrVersionMismatch) {
		// Settings layout changed with the firmware: start over from defaults.
		if err := m.Wipe(); err != nil {
			return nil, err
		}
		m.wiped = true
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes.
func (m *Manager) bootCleanup() error {
	entries, err := m.readDir(settingsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, tempSuffix) {
			m.fs.Remove(path.Join(settingsDir, name))
		}
	}
	return nil
}

// readDir reads the directory entries at the given path.
func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion compares the stored version with settings.CurrentVersion.
func (m *Manager) checkVersion() error {
	data, err := m.readSettings()
	if err != nil {
		return err
	}
	if binary.LittleEndian.Uint16(data) != settings.CurrentVersion {
		return ErrVersionMismatch
	}
	return nil
}

// ensureDirs creates the settings directory if it doesn't exist.
func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(settingsDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

func isNotFound(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "No directory entry")
}

func (m *Manager) readSettings() ([]byte, error) {
	f, err := m.fs.Open(settingsFile)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, settings.Size)
	n, err := f.Read(buf)
	if err != nil {
		return nil, err
	}
	if n != settings.Size {
		return nil, ErrInvalidSettings
	}
	return buf, nil
}

// LoadSettings loads the stored settings. It implements settings.Persister.
func (m *Manager) LoadSettings() (*settings.Settings, error) {
	data, err := m.readSettings()
	if err != nil {
		return nil, err
	}

	var s settings.Settings
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if s.Version != settings.CurrentVersion {
		return nil, ErrVersionMismatch
	}
	return &s, nil
}

// SaveSettings saves the settings atomically.
func (m *Manager) SaveSettings(s *settings.Settings) error {
	if err := m.ensureDirs(); err != nil {
		return err
	}

	s.Version = settings.CurrentVersion

	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	return m.atomicWrite(settingsFile, data)
}

// HasSettings reports whether a settings file exists.
func (m *Manager) HasSettings() bool {
	f, err := m.fs.Open(settingsFile)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Wipe removes the stored settings.
func (m *Manager) Wipe() error {
	if err := m.fs.Remove(settingsFile); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// GetStats returns storage statistics.
func (m *Manager) GetStats() (*Stats, error) {
	has := m.HasSettings()

	// LittleFS has no free-space call; estimate from what we store.
	used := int64(overhead)
	if has {
		used += settings.Size + overhead
	}

	total := m.blockDev.Size()

	return &Stats{
		TotalSpace:  total,
		UsedSpace:   used,
		FreeSpace:   total - used,
		HasSettings: has,
		Wiped:       m.wiped,
	}, nil
}

// atomicWrite writes data to a temporary file, syncs it, then renames.
// The original file is never in a partially written state.
func (m *Manager) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix

	// Left over from an interrupted write
	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	// Sync ensures data hits flash
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}
