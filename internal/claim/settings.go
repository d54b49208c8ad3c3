// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

// Setting keys addressable through Settings.Get and Settings.Set.
const (
	SettingBuild     = "build"
	SettingDestroy   = "destroy"
	SettingUse       = "use"
	SettingSwitch    = "switch"
	SettingMobs      = "mobs"
	SettingPvP       = "pvp"
	SettingFire      = "fire"
	SettingExplosion = "explosion"
)

// SettingKeys lists every addressable setting key.
var SettingKeys = []string{
	SettingBuild, SettingDestroy, SettingUse, SettingSwitch,
	SettingMobs, SettingPvP, SettingFire, SettingExplosion,
}

// Settings holds the per-claim protection flags. Each flag, when true, grants
// the corresponding permission to non-trusted principals; the zero value denies
// everything, which is the default for freshly created claims.
type Settings struct {
	Build     bool
	Destroy   bool
	Use       bool
	Switch    bool
	Mobs      bool
	PvP       bool
	Fire      bool
	Explosion bool
}

// Get returns the flag value for a setting key. Unknown keys report false.
func (s Settings) Get(key string) bool {
	switch key {
	case SettingBuild:
		return s.Build
	case SettingDestroy:
		return s.Destroy
	case SettingUse:
		return s.Use
	case SettingSwitch:
		return s.Switch
	case SettingMobs:
		return s.Mobs
	case SettingPvP:
		return s.PvP
	case SettingFire:
		return s.Fire
	case SettingExplosion:
		return s.Explosion
	default:
		return false
	}
}

// Set assigns the flag value for a setting key. Unknown keys are a no-op.
func (s *Settings) Set(key string, value bool) {
	switch key {
	case SettingBuild:
		s.Build = value
	case SettingDestroy:
		s.Destroy = value
	case SettingUse:
		s.Use = value
	case SettingSwitch:
		s.Switch = value
	case SettingMobs:
		s.Mobs = value
	case SettingPvP:
		s.PvP = value
	case SettingFire:
		s.Fire = value
	case SettingExplosion:
		s.Explosion = value
	}
}

// ValidSettingKey reports whether key addresses a known setting.
func ValidSettingKey(key string) bool {
	for _, k := range SettingKeys {
		if k == key {
			return true
		}
	}
	return false
}
