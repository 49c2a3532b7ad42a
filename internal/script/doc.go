// Package script drives a timeline from sandboxed Lua.
//
// A State exposes the timeline module to scripts. Every edit a script makes
// goes through the timeline's public operations, so it lands in the undo
// history exactly as an interactive edit would:
//
//	local tl = require("timeline")
//	local v1 = tl.add_track("video", "V1")
//	local clip = tl.insert_clip(v1, 0, 100, "interview.mp4")
//	tl.fade(clip, 15, true)
//	tl.resize(clip, 50, false)
//	assert(tl.check())
//
// The io, os and debug libraries are not opened, the file loaders are
// removed and require only resolves string, table, math and timeline.
// Each run is bounded by a timeout through the state's context.
package script
