// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

//go:build integration

package claims_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gridhold/gridhold/internal/geofence"
)

var _ = Describe("VolumeStore", func() {
	var (
		ctx    context.Context
		owner  ulid.ULID
		extent = geofence.VerticalExtent{MinY: -64, MaxY: 320}
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		owner = ulid.Make()
	})

	Describe("CreateVolume", func() {
		It("stores bounds and default priority", func() {
			b := geofence.CellBounds(2, -3, extent)
			Expect(env.Volumes.CreateVolume(ctx, "overworld", "alice_1", b, owner)).To(Succeed())

			got, ok, err := env.Volumes.VolumeBounds(ctx, "overworld", "alice_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(b))

			var priority int
			err = env.pool.QueryRow(ctx,
				`SELECT priority FROM volumes WHERE world = $1 AND name = $2`,
				"overworld", "alice_1").Scan(&priority)
			Expect(err).NotTo(HaveOccurred())
			Expect(priority).To(Equal(geofence.DefaultPriority))
		})

		It("replaces an existing volume and resets members", func() {
			member := ulid.Make()
			Expect(env.Volumes.CreateVolume(ctx, "overworld", "alice_1",
				geofence.CellBounds(0, 0, extent), owner)).To(Succeed())
			Expect(env.Volumes.AddMember(ctx, "overworld", "alice_1", member)).To(Succeed())

			wider := geofence.CellBounds(0, 0, extent).Union(geofence.CellBounds(1, 0, extent))
			Expect(env.Volumes.CreateVolume(ctx, "overworld", "alice_1", wider, owner)).To(Succeed())

			got, ok, err := env.Volumes.VolumeBounds(ctx, "overworld", "alice_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(wider))

			var members []string
			err = env.pool.QueryRow(ctx,
				`SELECT members FROM volumes WHERE world = $1 AND name = $2`,
				"overworld", "alice_1").Scan(&members)
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(BeEmpty())
		})
	})

	Describe("members", func() {
		It("appends once per principal and removes", func() {
			member := ulid.Make()
			Expect(env.Volumes.CreateVolume(ctx, "overworld", "alice_1",
				geofence.CellBounds(0, 0, extent), owner)).To(Succeed())

			Expect(env.Volumes.AddMember(ctx, "overworld", "alice_1", member)).To(Succeed())
			Expect(env.Volumes.AddMember(ctx, "overworld", "alice_1", member)).To(Succeed())

			var members []string
			err := env.pool.QueryRow(ctx,
				`SELECT members FROM volumes WHERE world = $1 AND name = $2`,
				"overworld", "alice_1").Scan(&members)
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(ConsistOf(member.String()))

			Expect(env.Volumes.RemoveMember(ctx, "overworld", "alice_1", member)).To(Succeed())
			err = env.pool.QueryRow(ctx,
				`SELECT members FROM volumes WHERE world = $1 AND name = $2`,
				"overworld", "alice_1").Scan(&members)
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(BeEmpty())
		})

		It("reports a missing volume", func() {
			err := env.Volumes.AddMember(ctx, "overworld", "missing", ulid.Make())
			Expect(err).To(MatchError(geofence.ErrVolumeNotFound))
		})
	})

	Describe("SetOwner", func() {
		It("swaps the owner and clears members", func() {
			buyer := ulid.Make()
			member := ulid.Make()
			Expect(env.Volumes.CreateVolume(ctx, "overworld", "alice_1",
				geofence.CellBounds(0, 0, extent), owner)).To(Succeed())
			Expect(env.Volumes.AddMember(ctx, "overworld", "alice_1", member)).To(Succeed())

			Expect(env.Volumes.SetOwner(ctx, "overworld", "alice_1", buyer)).To(Succeed())

			var ownerID string
			var members []string
			err := env.pool.QueryRow(ctx,
				`SELECT owner_id, members FROM volumes WHERE world = $1 AND name = $2`,
				"overworld", "alice_1").Scan(&ownerID, &members)
			Expect(err).NotTo(HaveOccurred())
			Expect(ownerID).To(Equal(buyer.String()))
			Expect(members).To(BeEmpty())
		})
	})

	Describe("NameAvailable", func() {
		It("is scoped per world", func() {
			Expect(env.Volumes.CreateVolume(ctx, "overworld", "alice_1",
				geofence.CellBounds(0, 0, extent), owner)).To(Succeed())

			free, err := env.Volumes.NameAvailable(ctx, "overworld", "alice_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(free).To(BeFalse())

			free, err = env.Volumes.NameAvailable(ctx, "nether", "alice_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(free).To(BeTrue())
		})
	})
})
