package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/importer"
)

// HookImportComplete is the Lua global called after every import.
const HookImportComplete = "on_import_complete"

// Manager owns one sandboxed LState loaded from a hook directory and
// dispatches hook calls to it. A Manager with nothing loaded is a no-op.
//
// The LState is single-threaded; calls are serialized by mu.
type Manager struct {
	mu        sync.Mutex
	state     *lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewManager creates an empty Manager.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Load creates a sandboxed VM, registers the tac module, then executes every
// *.lua file in dir in lexicographic order. A previously loaded VM is
// replaced only when loading succeeds.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns an error on read or Lua load failure.
func (m *Manager) Load(dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading hook dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	m.RegisterModules(L)
	for _, path := range luaFiles {
		cancel := Budget(context.Background(), L, instLimit)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		m.state.Close()
	}
	m.state = L
	m.instLimit = instLimit
	m.mu.Unlock()

	m.logger.Info("hooks loaded", zap.String("dir", dir), zap.Int("files", len(luaFiles)))
	return nil
}

// Loaded reports whether a VM is installed.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}

// CallHook calls the named Lua global with a fresh instruction budget.
// Returns (LNil, nil) when no VM is loaded or the hook is not defined.
//
// Precondition: args must be valid lua.LValue instances created for this
// Manager's VM (see NewSummary).
// Postcondition: Returns the first return value of the hook, or LNil and the
// wrapped Lua runtime error.
func (m *Manager) CallHook(ctx context.Context, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callLocked(ctx, hook, func(*lua.LState) []lua.LValue { return args })
}

func (m *Manager) callLocked(ctx context.Context, hook string, build func(*lua.LState) []lua.LValue) (lua.LValue, error) {
	if m.state == nil {
		return lua.LNil, nil
	}
	L := m.state

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	cancel := Budget(ctx, L, m.instLimit)
	defer cancel()
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, build(L)...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: calling %s: %w", hook, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// AfterImport passes a summary of report to on_import_complete. A string
// return value becomes extra operator text; any other value is ignored.
func (m *Manager) AfterImport(ctx context.Context, report importer.Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret, err := m.callLocked(ctx, HookImportComplete, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{NewSummary(L, report)}
	})
	if err != nil {
		return "", err
	}
	if s, ok := ret.(lua.LString); ok {
		return string(s), nil
	}
	return "", nil
}

// NewSummary builds the Lua table handed to on_import_complete:
//
//	{ scenes = {success, failure}, monsters = {...}, notes = {...},
//	  failures = { {kind, name, error}, ... }, text = "<report>" }
func NewSummary(L *lua.LState, report importer.Report) *lua.LTable {
	tally := func(t importer.Tally) *lua.LTable {
		tbl := L.NewTable()
		L.SetField(tbl, "success", lua.LNumber(t.Success))
		L.SetField(tbl, "failure", lua.LNumber(t.Failure))
		return tbl
	}

	failures := L.NewTable()
	for _, f := range report.Failures {
		item := L.NewTable()
		L.SetField(item, "kind", lua.LString(f.Kind))
		L.SetField(item, "name", lua.LString(f.Name))
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		L.SetField(item, "error", lua.LString(msg))
		failures.Append(item)
	}

	summary := L.NewTable()
	L.SetField(summary, "scenes", tally(report.Scenes))
	L.SetField(summary, "monsters", tally(report.Monsters))
	L.SetField(summary, "notes", tally(report.Notes))
	L.SetField(summary, "failures", failures)
	L.SetField(summary, "text", lua.LString(report.String()))
	return summary
}
