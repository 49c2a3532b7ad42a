// Package config provides the configuration of the timeline core.
//
// Configuration is layered, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← KDENLIVE_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← ~/.config/kdenlive-core/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// The layers are merged as maps and decoded strictly, so unknown keys in the
// file or the environment are reported instead of ignored. The decoded value
// is validated before it is returned.
//
// # Configuration File
//
//	[profile]
//	frame_rate_num = 25
//	frame_rate_den = 1
//
//	[history]
//	max_entries = 1000
//
//	[assets]
//	dirs = ["/usr/share/kdenlive/effects"]
//	watch = true
//	debounce = "100ms"
//
//	[logging]
//	level = "info"
//
//	[script]
//	timeout = "5s"
//
// # Environment
//
// KDENLIVE_LOG_LEVEL, KDENLIVE_UNDO_LIMIT and KDENLIVE_ASSET_DIRS are
// shortcuts. Any other KDENLIVE_SECTION_KEY variable sets section.key.
// KDENLIVE_CONFIG names the config file and is not itself a setting.
package config
