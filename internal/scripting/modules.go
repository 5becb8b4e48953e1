package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules defines the tac global in L.
//
//	tac.log(msg)   info-level log line
//	tac.warn(msg)  warn-level log line
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	tac := L.NewTable()
	L.SetField(tac, "log", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(tac, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetGlobal("tac", tac)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, "script"); ce != nil {
			ce.Write(zap.String("message", msg))
		}
		return 0
	}
}
