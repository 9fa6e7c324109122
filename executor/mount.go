package executor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
)

// MountMode defines the permission level for a mount point.
type MountMode int

const (
	// MountReadOnly allows only read operations.
	MountReadOnly MountMode = iota
	// MountReadWrite allows reading, writing and creating files.
	MountReadWrite
)

// Mount maps a host directory into the guest's WASI filesystem.
type Mount struct {
	VirtualPath string // Path as seen by the guest (e.g., "/data")
	HostPath    string // Actual path on host filesystem
	Mode        MountMode
}

// String formats m in the form ParseMount accepts.
func (m Mount) String() string {
	mode := "ro"
	if m.Mode == MountReadWrite {
		mode = "rw"
	}
	return m.VirtualPath + ":" + m.HostPath + ":" + mode
}

// ParseMount parses "virtual:host:mode" where mode is ro or rw.
func ParseMount(spec string) (Mount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return Mount{}, fmt.Errorf("invalid mount spec %q (expected virtual:host:mode)", spec)
	}

	var mode MountMode
	switch parts[2] {
	case "ro":
		mode = MountReadOnly
	case "rw":
		mode = MountReadWrite
	default:
		return Mount{}, fmt.Errorf("invalid mount mode %q (expected ro or rw)", parts[2])
	}

	return Mount{
		VirtualPath: parts[0],
		HostPath:    parts[1],
		Mode:        mode,
	}, nil
}

// WithMount exposes a host directory to WASI guests. Guests that only
// import the Falak runtime library never see it.
func WithMount(m Mount) Option {
	return func(c *runConfig) {
		c.mounts = append(c.mounts, m)
	}
}

// fsConfig builds the WASI filesystem for the given mounts, or nil if none.
func fsConfig(mounts []Mount) (wazero.FSConfig, error) {
	if len(mounts) == 0 {
		return nil, nil
	}
	cfg := wazero.NewFSConfig()
	for _, m := range mounts {
		vp := "/" + strings.Trim(m.VirtualPath, "/")
		hp, err := filepath.Abs(m.HostPath)
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", m.VirtualPath, err)
		}
		if m.Mode == MountReadOnly {
			cfg = cfg.WithReadOnlyDirMount(hp, vp)
		} else {
			cfg = cfg.WithDirMount(hp, vp)
		}
	}
	return cfg, nil
}
