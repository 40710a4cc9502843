// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package decision

import (
	"log/slog"
	"slices"

	lua "github.com/yuin/gopher-lua"
)

// decideScript runs the policy Lua script over the telemetry. The script
// sees a `message` global with the device id, telemetry payload and last
// issued action, and answers with either an action string or a table of
// the form {action = "...", parameters = {...}}. Nil or false means no
// command.
func (e *Engine) decideScript(in Input, p Policy) *candidate {
	l := lua.NewState()
	defer l.Close()

	message := l.NewTable()
	message.RawSetString("device_id", lua.LString(in.DeviceID))
	message.RawSetString("payload", toLua(l, map[string]interface{}(in.Telemetry)))
	if in.LastCommand != nil {
		message.RawSetString("last_action", lua.LString(in.LastCommand.Action))
	}
	l.SetGlobal("message", message)

	if err := l.DoString(p.Script); err != nil {
		e.logger.Error("failed to run policy script",
			slog.String("device_id", in.DeviceID),
			slog.Any("error", err),
		)
		return nil
	}

	result := fromLua(l.Get(-1))
	switch res := result.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case string:
		if res == "" {
			return nil
		}
		return &candidate{
			action:   res,
			critical: slices.Contains(p.CriticalActions, res),
		}
	case map[string]interface{}:
		action, _ := res["action"].(string)
		if action == "" {
			return nil
		}
		params, _ := res["parameters"].(map[string]interface{})
		return &candidate{
			action:     action,
			parameters: params,
			critical:   slices.Contains(p.CriticalActions, action),
		}
	default:
		e.logger.Warn("policy script returned unsupported type",
			slog.String("device_id", in.DeviceID),
		)
		return nil
	}
}

func toLua(l *lua.LState, value interface{}) lua.LValue {
	switch val := value.(type) {
	case string:
		return lua.LString(val)
	case float64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(float64(val))
	case int64:
		return lua.LNumber(float64(val))
	case uint64:
		return lua.LNumber(float64(val))
	case bool:
		return lua.LBool(val)
	case []interface{}:
		t := l.NewTable()
		for i, j := range val {
			t.RawSetInt(i+1, toLua(l, j))
		}
		return t
	case map[string]interface{}:
		t := l.NewTable()
		for k, v := range val {
			t.RawSetString(k, toLua(l, v))
		}
		return t
	default:
		return lua.LNil
	}
}

func fromLua(lv lua.LValue) interface{} {
	switch v := lv.(type) {
	case *lua.LTable:
		isArray := true
		v.ForEach(func(key, value lua.LValue) {
			if key.Type() != lua.LTNumber {
				isArray = false
			}
		})
		if isArray {
			arr := []interface{}{}
			v.ForEach(func(key, value lua.LValue) {
				arr = append(arr, fromLua(value))
			})
			return arr
		}
		obj := map[string]interface{}{}
		v.ForEach(func(key, value lua.LValue) {
			obj[key.String()] = fromLua(value)
		})
		return obj
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return float64(v)
	case lua.LBool:
		return bool(v)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}
