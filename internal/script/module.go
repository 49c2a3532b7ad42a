package script

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/media"
	"github.com/Tilix4/kdenlive/internal/timeline"
)

// ModuleName is the name scripts require.
const ModuleName = "timeline"

var clipStates = map[string]timeline.ClipState{
	"audio+video": timeline.StateAudioVideo,
	"video":       timeline.StateVideoOnly,
	"audio":       timeline.StateAudioOnly,
	"disabled":    timeline.StateDisabled,
}

// module binds the timeline functions exposed to Lua.
type module struct {
	tl *timeline.Timeline
}

func newModule(tl *timeline.Timeline) *module {
	return &module{tl: tl}
}

func (m *module) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"add_track":          m.addTrack,
		"insert_clip":        m.insertClip,
		"insert_color":       m.insertColor,
		"insert_composition": m.insertComposition,
		"remove":             m.remove,
		"resize":             m.resize,
		"cut":                m.cut,
		"add_effect":         m.addEffect,
		"remove_effect":      m.removeEffect,
		"move_effect":        m.moveEffect,
		"set_param":          m.setParam,
		"fade":               m.fade,
		"remove_fade":        m.removeFade,
		"set_state":          m.setState,
		"speed":              m.speed,
		"a_track":            m.aTrack,
		"item":               m.item,
		"effects":            m.effects,
		"group":              m.group,
		"undo":               m.undo,
		"redo":               m.redo,
		"check":              m.check,
	})
	L.Push(mod)
	return 1
}

func checkID(L *lua.LState, n int) ident.ID {
	return ident.ID(L.CheckInt64(n))
}

func pushID(L *lua.LState, id ident.ID, ok bool) int {
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

func pushBool(L *lua.LState, ok bool) int {
	L.Push(lua.LBool(ok))
	return 1
}

// add_track(kind, name) -> id. kind is "video" or "audio".
func (m *module) addTrack(L *lua.LState) int {
	kind := timeline.VideoTrack
	switch L.OptString(1, "video") {
	case "video":
	case "audio":
		kind = timeline.AudioTrack
	default:
		L.ArgError(1, "track kind must be video or audio")
	}
	return pushID(L, m.tl.AddTrack(kind, L.OptString(2, "")), true)
}

// insert_clip(track, position, length, name) -> id | nil
func (m *module) insertClip(L *lua.LState) int {
	track, position, length := checkID(L, 1), L.CheckInt(2), L.CheckInt(3)
	if length <= 0 {
		L.ArgError(3, "length must be positive")
	}
	p := media.NewProducer(L.OptString(4, "clip"), length)
	id, ok := m.tl.InsertClip(p, track, position)
	return pushID(L, id, ok)
}

// insert_color(track, position, seconds, color) -> id | nil
func (m *module) insertColor(L *lua.LState) int {
	track, position := checkID(L, 1), L.CheckInt(2)
	d := time.Duration(float64(L.CheckNumber(3)) * float64(time.Second))
	id, ok := m.tl.InsertColorClip(L.OptString(4, "black"), track, position, d)
	return pushID(L, id, ok)
}

// insert_composition(track, position, duration, asset) -> id | nil
func (m *module) insertComposition(L *lua.LState) int {
	track, position, duration := checkID(L, 1), L.CheckInt(2), L.CheckInt(3)
	id, ok := m.tl.InsertComposition(L.OptString(4, "composite"), track, position, duration)
	return pushID(L, id, ok)
}

func (m *module) remove(L *lua.LState) int {
	return pushBool(L, m.tl.RemoveItem(checkID(L, 1)))
}

// resize(id, size, from_right) -> bool. from_right defaults to true.
func (m *module) resize(L *lua.LState) int {
	return pushBool(L, m.tl.RequestItemResize(checkID(L, 1), L.CheckInt(2), L.OptBool(3, true), true))
}

// cut(id, position) -> id of the right part | nil
func (m *module) cut(L *lua.LState) int {
	id, ok := m.tl.RequestClipCut(checkID(L, 1), L.CheckInt(2))
	return pushID(L, id, ok)
}

// add_effect(id, asset) -> effect id | nil
func (m *module) addEffect(L *lua.LState) int {
	id, ok := m.tl.AddEffect(checkID(L, 1), L.CheckString(2))
	return pushID(L, id, ok)
}

// remove_effect(id, effect) -> bool
func (m *module) removeEffect(L *lua.LState) int {
	it, ok := m.tl.Item(checkID(L, 1))
	return pushBool(L, ok && it.Stack().RemoveEffect(checkID(L, 2)))
}

// move_effect(id, effect, row) -> bool
func (m *module) moveEffect(L *lua.LState) int {
	it, ok := m.tl.Item(checkID(L, 1))
	return pushBool(L, ok && it.Stack().MoveEffect(L.CheckInt(3), checkID(L, 2)))
}

// set_param(id, effect, name, value) -> bool
func (m *module) setParam(L *lua.LState) int {
	it, ok := m.tl.Item(checkID(L, 1))
	return pushBool(L, ok && it.Stack().SetParameter(checkID(L, 2), L.CheckString(3), L.CheckString(4)))
}

// fade(id, duration, from_start) -> bool
func (m *module) fade(L *lua.LState) int {
	return pushBool(L, m.tl.AdjustFade(checkID(L, 1), L.CheckInt(2), L.OptBool(3, true)))
}

// remove_fade(id, from_start) -> bool
func (m *module) removeFade(L *lua.LState) int {
	it, ok := m.tl.Item(checkID(L, 1))
	return pushBool(L, ok && it.Stack().RemoveFade(L.OptBool(2, true)))
}

// set_state(id, state) -> bool
func (m *module) setState(L *lua.LState) int {
	st, ok := clipStates[L.CheckString(2)]
	if !ok {
		L.ArgError(2, "unknown clip state")
	}
	return pushBool(L, m.tl.SetClipState(checkID(L, 1), st))
}

// speed(id, rate) -> bool
func (m *module) speed(L *lua.LState) int {
	return pushBool(L, m.tl.RequestClipSpeed(checkID(L, 1), float64(L.CheckNumber(2))))
}

// a_track(id, index, forced) -> bool. index -1 clears the a-track.
func (m *module) aTrack(L *lua.LState) int {
	id := checkID(L, 1)
	ok := m.tl.SetCompositionATrack(id, L.CheckInt(2))
	if ok && L.GetTop() >= 3 {
		ok = m.tl.SetCompositionForceTrack(id, L.CheckBool(3))
	}
	return pushBool(L, ok)
}

// item(id) -> {track, position, ["in"], out, playtime, effects} | nil
func (m *module) item(L *lua.LState) int {
	it, ok := m.tl.Item(checkID(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	t.RawSetString("id", lua.LNumber(it.ID()))
	if track := it.Track(); track.Valid() {
		t.RawSetString("track", lua.LNumber(track))
	}
	t.RawSetString("position", lua.LNumber(it.Position()))
	t.RawSetString("in", lua.LNumber(it.In()))
	t.RawSetString("out", lua.LNumber(it.Out()))
	t.RawSetString("playtime", lua.LNumber(it.Playtime()))
	t.RawSetString("endless", lua.LBool(it.Endless()))
	if c, isClip := it.(*timeline.Clip); isClip {
		t.RawSetString("state", lua.LString(c.State().String()))
		t.RawSetString("speed", lua.LNumber(c.Speed()))
	}
	if c, isComp := it.(*timeline.Composition); isComp {
		t.RawSetString("a_track", lua.LNumber(c.ATrack()))
		t.RawSetString("forced", lua.LBool(c.Forced()))
	}
	t.RawSetString("effects", m.effectTable(L, it))
	L.Push(t)
	return 1
}

// effects(id) -> array of {id, asset, name, ["in"], out}
func (m *module) effects(L *lua.LState) int {
	it, ok := m.tl.Item(checkID(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(m.effectTable(L, it))
	return 1
}

func (m *module) effectTable(L *lua.LState, it timeline.Item) *lua.LTable {
	list := L.NewTable()
	for _, e := range it.Stack().Effects() {
		t := L.NewTable()
		t.RawSetString("id", lua.LNumber(e.ID))
		t.RawSetString("asset", lua.LString(e.Asset))
		t.RawSetString("name", lua.LString(e.Name))
		t.RawSetString("in", lua.LNumber(e.In))
		t.RawSetString("out", lua.LNumber(e.Out))
		t.RawSetString("enabled", lua.LBool(e.Enabled))
		list.Append(t)
	}
	return list
}

// group runs fn so its edits undo as one entry labelled label. An error
// raised by fn reverts them and is returned as false plus the message.
func (m *module) group(L *lua.LState) int {
	label := L.CheckString(1)
	fn := L.CheckFunction(2)
	err := m.tl.History().Transaction(label, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	return pushBool(L, true)
}

func (m *module) undo(L *lua.LState) int {
	return pushBool(L, m.tl.Undo() == nil)
}

func (m *module) redo(L *lua.LState) int {
	return pushBool(L, m.tl.Redo() == nil)
}

// check() -> true | false, message
func (m *module) check(L *lua.LState) int {
	if err := m.tl.CheckConsistency(); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}
