// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"

	"github.com/gridhold/gridhold/internal/claim"
)

func TestClaim_New(t *testing.T) {
	owner := claim.Principal{ID: ulid.Make(), Name: "Alice"}
	c := claim.New(claim.Position{World: "overworld", CellX: 3, CellZ: -2}, "base", owner)

	assert.Equal(t, claim.UnpersistedID, c.ID)
	assert.Equal(t, "overworld:3:-2", c.Key())
	assert.True(t, c.IsOwner(owner.ID))
	assert.Zero(t, c.TrustedCount())

	// Fresh claims deny everything to outsiders.
	for _, key := range claim.SettingKeys {
		assert.False(t, c.Settings.Get(key), key)
	}
}

func TestClaim_CanInteract(t *testing.T) {
	owner := claim.Principal{ID: ulid.Make(), Name: "Alice"}
	friend := claim.Principal{ID: ulid.Make(), Name: "Bob"}
	stranger := ulid.Make()

	c := claim.New(claim.Position{World: "overworld"}, "base", owner)
	c.SetTrusted(map[ulid.ULID]string{friend.ID: friend.Name})

	assert.True(t, c.CanInteract(owner.ID))
	assert.True(t, c.CanInteract(friend.ID))
	assert.False(t, c.CanInteract(stranger))
}

func TestClaim_TrustedReturnsCopy(t *testing.T) {
	owner := claim.Principal{ID: ulid.Make(), Name: "Alice"}
	friend := ulid.Make()

	c := claim.New(claim.Position{World: "overworld"}, "base", owner)
	c.SetTrusted(map[ulid.ULID]string{friend: "Bob"})

	got := c.Trusted()
	delete(got, friend)
	assert.True(t, c.IsTrusted(friend), "mutating the returned map must not affect the claim")
}

func TestClaim_CloneIsDeep(t *testing.T) {
	owner := claim.Principal{ID: ulid.Make(), Name: "Alice"}
	friend := ulid.Make()

	c := claim.New(claim.Position{World: "overworld"}, "base", owner)
	c.SetTrusted(map[ulid.ULID]string{friend: "Bob"})

	clone := c.Clone()
	clone.Name = "other"
	clone.SetTrusted(nil)

	assert.Equal(t, "base", c.Name)
	assert.True(t, c.IsTrusted(friend))
	assert.False(t, clone.IsTrusted(friend))
}

func TestClaim_NameEquals(t *testing.T) {
	owner := claim.Principal{ID: ulid.Make(), Name: "Alice"}
	c := claim.New(claim.Position{World: "overworld"}, "Base", owner)

	assert.True(t, c.NameEquals("base"))
	assert.True(t, c.NameEquals("BASE"))
	assert.False(t, c.NameEquals("bases"))
}

func TestSettings_GetSet(t *testing.T) {
	var s claim.Settings

	for _, key := range claim.SettingKeys {
		assert.False(t, s.Get(key), key)
		s.Set(key, true)
		assert.True(t, s.Get(key), key)
	}
}

func TestSettings_UnknownKey(t *testing.T) {
	var s claim.Settings

	s.Set("teleport", true)
	assert.False(t, s.Get("teleport"))
	assert.Equal(t, claim.Settings{}, s, "unknown keys must not change any flag")

	assert.False(t, claim.ValidSettingKey("teleport"))
	assert.True(t, claim.ValidSettingKey(claim.SettingFire))
}
