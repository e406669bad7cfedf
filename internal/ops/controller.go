// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jeranaias/shipctl-tui/internal/util"
)

// Start modes the controller accepts.
const (
	ModeDevChat           = "dev-chat"
	ModeDevInterfaceLocal = "dev-interface-local"
)

// stateDirName holds the pid state file and backend log inside the repo.
const stateDirName = ".native-host"

// envFileName is the writable configuration file at the repo root.
const envFileName = ".shipctl.env"

// stopDeadline is how long a SIGTERM gets before escalating to SIGKILL.
const stopDeadline = 3 * time.Second

// startGrace is how long a freshly spawned backend gets to prove it did
// not die immediately.
const startGrace = 800 * time.Millisecond

// allowedMakeTargets is the fixed allowlist for RunMake. Anything else
// is refused before touching the shell.
var allowedMakeTargets = map[string]bool{
	"build-playground": true,
	"build-extension":  true,
}

var (
	// ErrUnknownMode indicates an unsupported start mode.
	ErrUnknownMode = errors.New("unknown start mode")

	// ErrTargetNotAllowed indicates a make target outside the allowlist.
	ErrTargetNotAllowed = errors.New("make target not allowed")

	// ErrNoRepoRoot indicates the repo root could not be located.
	ErrNoRepoRoot = errors.New("could not locate repo root: set REPO_PATH in " + envFileName)
)

// State is the persisted record of a managed backend process.
type State struct {
	PID       int    `json:"pid,omitempty"`
	Mode      string `json:"mode,omitempty"`
	StartedAt int64  `json:"startedAt,omitempty"`
}

// Status is the live view assembled from the state file and an optional
// health probe.
type Status struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Mode      string `json:"mode,omitempty"`
	StartedAt int64  `json:"startedAt,omitempty"`
	HealthURL string `json:"healthUrl,omitempty"`
	Healthy   *bool  `json:"healthy,omitempty"`
}

// MakeResult reports one make invocation.
type MakeResult struct {
	OK       bool   `json:"ok"`
	ExitCode int    `json:"exitCode"`
	LogTail  string `json:"logTail"`
}

// Controller manages the playground backend process: spawn under its
// own process group, track it through a pid state file, stop it with a
// bounded-escalation kill, and run allowlisted build targets.
type Controller struct {
	repoRoot string
	logf     func(format string, args ...any)
}

// NewController creates a controller rooted at repoRoot. When repoRoot
// is empty it is resolved via FindRepoRoot on first use.
func NewController(repoRoot string) *Controller {
	return &Controller{
		repoRoot: repoRoot,
		logf: func(format string, args ...any) {
			log.Printf("[OPS] "+format, args...)
		},
	}
}

// =============================================================================
// REPO ROOT & STATE FILES
// =============================================================================

// FindRepoRoot resolves the managed repository: an explicit path (must
// contain a Makefile), then REPO_PATH from the env file next to cwd,
// then the first ancestor of cwd carrying a Makefile.
func FindRepoRoot(custom string) (string, error) {
	if custom != "" {
		abs, err := filepath.Abs(expandHome(custom))
		if err != nil {
			return "", err
		}
		if hasMakefile(abs) {
			return abs, nil
		}
		return "", fmt.Errorf("custom repo path invalid: %s", custom)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	if env, err := godotenv.Read(filepath.Join(cwd, envFileName)); err == nil {
		if p := strings.TrimSpace(env["REPO_PATH"]); p != "" {
			abs, err := filepath.Abs(expandHome(p))
			if err == nil && hasMakefile(abs) {
				return abs, nil
			}
		}
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		if hasMakefile(dir) {
			return dir, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}
	return "", ErrNoRepoRoot
}

func hasMakefile(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "Makefile"))
	return err == nil && !info.IsDir()
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func (c *Controller) root() (string, error) {
	if c.repoRoot != "" {
		return c.repoRoot, nil
	}
	root, err := FindRepoRoot("")
	if err != nil {
		return "", err
	}
	c.repoRoot = root
	return root, nil
}

func (c *Controller) statePaths() (statePath, logPath string, err error) {
	root, err := c.root()
	if err != nil {
		return "", "", err
	}
	dir := filepath.Join(root, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return filepath.Join(dir, "state.json"), filepath.Join(dir, "backend.log"), nil
}

func readState(path string) State {
	var st State
	raw, err := os.ReadFile(path)
	if err != nil {
		return st
	}
	// A corrupt state file reads as "nothing running".
	_ = json.Unmarshal(raw, &st)
	return st
}

func writeState(path string, st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, raw, 0o644)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start spawns the backend in the requested mode unless one is already
// running. The process detaches into its own process group and logs to
// the state dir's backend.log.
func (c *Controller) Start(mode string) (State, error) {
	if mode != ModeDevChat && mode != ModeDevInterfaceLocal {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	statePath, logPath, err := c.statePaths()
	if err != nil {
		return State{}, err
	}

	if st := readState(statePath); st.PID > 0 && pidAlive(st.PID) {
		c.logf("start: already running pid=%d", st.PID)
		return st, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return State{}, err
	}
	defer logFile.Close()
	fmt.Fprintf(logFile, "\n--- start %s mode=%s ---\n", time.Now().Format("2006-01-02 15:04:05"), mode)

	root, _ := c.root()
	cmd := exec.Command("make", mode)
	cmd.Dir = root
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return State{}, fmt.Errorf("failed to start backend: %w", err)
	}
	pid := cmd.Process.Pid

	// The parent must reap the child eventually; release it to its own
	// group and let it run past our lifetime.
	go func() { _ = cmd.Wait() }()

	time.Sleep(startGrace)
	if !pidAlive(pid) {
		tail := tailFile(logPath, 60)
		return State{}, fmt.Errorf("backend failed to start: %s", tail)
	}

	st := State{PID: pid, Mode: mode, StartedAt: time.Now().Unix()}
	if err := writeState(statePath, st); err != nil {
		return State{}, err
	}
	c.logf("start: pid=%d mode=%s", pid, mode)
	return st, nil
}

// Stop terminates the managed backend's process group: SIGTERM, a
// bounded wait, then SIGKILL. Clears the state file either way.
func (c *Controller) Stop() error {
	statePath, _, err := c.statePaths()
	if err != nil {
		return err
	}

	st := readState(statePath)
	if st.PID <= 0 || !pidAlive(st.PID) {
		return writeState(statePath, State{})
	}

	err = stopProcessTree(st.PID, stopDeadline)
	if werr := writeState(statePath, State{}); werr != nil && err == nil {
		err = werr
	}
	c.logf("stop: pid=%d err=%v", st.PID, err)
	return err
}

// Status reports whether the managed backend is alive, and optionally
// probes chatAPIBaseURL's /health endpoint.
func (c *Controller) Status(chatAPIBaseURL string) (Status, error) {
	statePath, _, err := c.statePaths()
	if err != nil {
		return Status{}, err
	}

	st := readState(statePath)
	out := Status{
		Running:   st.PID > 0 && pidAlive(st.PID),
		Mode:      st.Mode,
		StartedAt: st.StartedAt,
	}
	if out.Running {
		out.PID = st.PID
	}

	if base := strings.TrimRight(strings.TrimSpace(chatAPIBaseURL), "/"); base != "" {
		out.HealthURL = base + "/health"
		healthy := probeHealth(out.HealthURL, 1500*time.Millisecond)
		out.Healthy = &healthy
	}
	return out, nil
}

// Logs returns the last maxLines lines of the backend log.
func (c *Controller) Logs(maxLines int) (string, error) {
	_, logPath, err := c.statePaths()
	if err != nil {
		return "", err
	}
	return tailFile(logPath, maxLines), nil
}

// RunMake runs one allowlisted make target, logging to a per-target
// file in the state dir.
func (c *Controller) RunMake(target string) (MakeResult, error) {
	if !allowedMakeTargets[target] {
		return MakeResult{}, fmt.Errorf("%w: %q", ErrTargetNotAllowed, target)
	}

	root, err := c.root()
	if err != nil {
		return MakeResult{}, err
	}
	logPath := filepath.Join(root, stateDirName, "make-"+target+".log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return MakeResult{}, err
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return MakeResult{}, err
	}
	defer logFile.Close()
	fmt.Fprintf(logFile, "\n--- make %s %s ---\n", target, time.Now().Format("2006-01-02 15:04:05"))

	cmd := exec.Command("make", target)
	cmd.Dir = root
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	runErr := cmd.Run()

	res := MakeResult{LogTail: tailFile(logPath, 120)}
	if runErr == nil {
		res.OK = true
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("failed to run make %s: %w", target, runErr)
}

// ReadConfig returns the two panel-managed settings from the env file
// at the repo root. Missing file reads as empty values.
func (c *Controller) ReadConfig() (pythonPath, repoPath string, err error) {
	root, err := c.root()
	if err != nil {
		return "", "", err
	}
	env, err := godotenv.Read(filepath.Join(root, envFileName))
	if err != nil {
		return "", "", nil
	}
	return env["PYTHON_PATH"], env["REPO_PATH"], nil
}

// SaveConfig writes the env file at the repo root with the two settings
// the panel manages.
func (c *Controller) SaveConfig(pythonPath, repoPath string) (string, error) {
	root, err := c.root()
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, envFileName)

	lines := []string{
		"# shipctl configuration",
		"# Auto-generated by panel settings",
		"",
		"# Path to Python interpreter (for native host)",
		"PYTHON_PATH=" + strings.TrimSpace(pythonPath),
		"",
		"# Path to the backend repository",
		"REPO_PATH=" + strings.TrimSpace(repoPath),
		"",
	}
	if err := util.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// probeHealth reports whether url answers 2xx within timeout.
func probeHealth(url string, timeout time.Duration) bool {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// tailFile returns the last maxLines lines of path, empty on any error.
func tailFile(path string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = 50
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
