// Package agent bridges the external agent CLI into the service. It resolves
// the binary, builds invocation arguments and runs the process either to
// completion (buffered JSON) or as a live line stream.
package agent

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"runner/internal/domain"
	"runner/internal/infra"
)

const (
	defaultBinary = "agent"
	defaultModel  = "auto"
)

// Mode selects what the agent is allowed to do.
type Mode string

const (
	ModeAsk  Mode = "ask"
	ModePlan Mode = "plan"
	// ModeExecute grants full access.
	ModeExecute Mode = ""
)

// Options configures a Bridge.
type Options struct {
	// Binary is the executable name searched on PATH, or an absolute path.
	Binary string
	// Model is passed through as --model.
	Model string
	// InstallDir is scanned for versioned bundles when Binary is not on PATH.
	InstallDir string
	Logger     *infra.Logger

	lookPath func(string) (string, error)
	goos     string
}

// Bridge invokes the agent CLI.
type Bridge struct {
	binary     string
	model      string
	installDir string
	logger     *infra.Logger
	lookPath   func(string) (string, error)
	goos       string
}

// NewBridge constructs a Bridge with defaults applied.
func NewBridge(opts Options) *Bridge {
	b := &Bridge{
		binary:     strings.TrimSpace(opts.Binary),
		model:      strings.TrimSpace(opts.Model),
		installDir: strings.TrimSpace(opts.InstallDir),
		logger:     opts.Logger,
		lookPath:   opts.lookPath,
		goos:       opts.goos,
	}
	if b.binary == "" {
		b.binary = defaultBinary
	}
	if b.model == "" {
		b.model = defaultModel
	}
	if b.lookPath == nil {
		b.lookPath = exec.LookPath
	}
	if b.goos == "" {
		b.goos = runtime.GOOS
	}
	if b.installDir == "" {
		b.installDir = DefaultInstallDir(b.goos)
	}
	if b.logger == nil {
		nop := zerolog.Nop()
		b.logger = &nop
	}
	return b
}

// DefaultInstallDir returns the per-platform directory the agent installer
// unpacks its versioned bundles into.
func DefaultInstallDir(goos string) string {
	home, _ := os.UserHomeDir()
	if goos == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "cursor-agent")
		}
		return filepath.Join(home, "AppData", "Local", "cursor-agent")
	}
	return filepath.Join(home, ".local", "share", "cursor-agent")
}

func installHint(goos string) string {
	if goos == "windows" {
		return "Install it with: irm 'https://cursor.com/install?win32=true' | iex"
	}
	return "Install it with: curl -fsSL https://cursor.com/install | bash"
}

// Resolve returns the base command used to launch the agent. It prefers the
// binary on PATH and falls back to the newest bundle under the install
// directory, launched through its bundled node runtime.
func (b *Bridge) Resolve() ([]string, error) {
	if filepath.IsAbs(b.binary) {
		if isExecutableFile(b.binary) {
			return []string{b.binary}, nil
		}
	} else if path, err := b.lookPath(b.binary); err == nil {
		return []string{path}, nil
	}

	if cmd, ok := b.scanInstallDir(); ok {
		return cmd, nil
	}
	return nil, &domain.AgentUnavailableError{Hint: installHint(b.goos)}
}

func (b *Bridge) scanInstallDir() ([]string, bool) {
	node := "node"
	if b.goos == "windows" {
		node = "node.exe"
	}
	bundle := func(dir string) ([]string, bool) {
		nodePath := filepath.Join(dir, node)
		indexPath := filepath.Join(dir, "index.js")
		if isRegularFile(nodePath) && isRegularFile(indexPath) {
			return []string{nodePath, indexPath}, true
		}
		return nil, false
	}

	entries, err := os.ReadDir(filepath.Join(b.installDir, "versions"))
	if err == nil {
		var versions []string
		for _, e := range entries {
			if e.IsDir() {
				versions = append(versions, e.Name())
			}
		}
		sortNewestFirst(versions)
		for _, v := range versions {
			if cmd, ok := bundle(filepath.Join(b.installDir, "versions", v)); ok {
				return cmd, true
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		b.logger.Warn().Err(err).Str("dir", b.installDir).Msg("agent: scan install dir failed")
	}
	return bundle(b.installDir)
}

// sortNewestFirst orders bundle directory names by version, newest first.
// Names that do not parse as versions sort after the ones that do.
func sortNewestFirst(names []string) {
	parsed := make(map[string]*version.Version, len(names))
	for _, n := range names {
		if v, err := version.NewVersion(n); err == nil {
			parsed[n] = v
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		vi, vj := parsed[names[i]], parsed[names[j]]
		switch {
		case vi != nil && vj != nil:
			return vi.GreaterThan(vj)
		case vi != nil || vj != nil:
			return vi != nil
		default:
			return names[i] > names[j]
		}
	})
}

// Describe reports the resolved command, for health checks.
func (b *Bridge) Describe() (string, error) {
	cmd, err := b.Resolve()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s @ %s", defaultBinary, strings.Join(cmd, " ")), nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// BuildArgs assembles the full argument list. The prompt is always last.
func BuildArgs(base []string, model string, mode Mode, sessionID, prompt string, streaming bool) []string {
	args := append([]string(nil), base...)
	args = append(args, "-p", "--trust", "--model", model)

	if streaming {
		args = append(args, "--output-format", "stream-json", "--stream-partial-output")
	} else {
		args = append(args, "--output-format", "json")
	}

	if sessionID != "" {
		args = append(args, "--resume", sessionID)
	}

	if mode != ModeExecute {
		args = append(args, "--mode", string(mode))
	} else {
		args = append(args, "--yolo")
	}

	return append(args, prompt)
}

func shortSession(sessionID string) string {
	if sessionID == "" {
		return "new"
	}
	if len(sessionID) > 12 {
		return sessionID[:12]
	}
	return sessionID
}
