// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

//go:build integration

package claims_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gridhold/gridhold/internal/claim"
)

var _ = Describe("ClaimRepository", func() {
	var (
		ctx   context.Context
		alice claim.Principal
		bob   claim.Principal
	)

	newClaim := func(x, z int, name string) *claim.Claim {
		c := claim.New(claim.Position{World: "overworld", CellX: x, CellZ: z}, name, alice)
		c.RegionName = "alice_1"
		c.CreatedAt = time.Now()
		return c
	}

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		alice = claim.Principal{ID: ulid.Make(), Name: "Alice"}
		bob = claim.Principal{ID: ulid.Make(), Name: "Bob"}
	})

	Describe("Insert", func() {
		It("round-trips every claim field through LoadAll", func() {
			c := newClaim(3, -7, "home")
			c.Settings.Build = true
			c.Settings.PvP = true
			c.ForSale = true
			c.SalePrice = 250
			c.SaleAnchor = "overworld,48,64,-112"

			id, err := env.Claims.Insert(ctx, c)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNumerically(">", 0))

			claims, err := env.Claims.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims).To(HaveLen(1))

			got := claims[0]
			Expect(got.ID).To(Equal(id))
			Expect(got.World).To(Equal("overworld"))
			Expect(got.CellX).To(Equal(3))
			Expect(got.CellZ).To(Equal(-7))
			Expect(got.Name).To(Equal("home"))
			Expect(got.Owner).To(Equal(alice))
			Expect(got.Settings.Build).To(BeTrue())
			Expect(got.Settings.PvP).To(BeTrue())
			Expect(got.Settings.Destroy).To(BeFalse())
			Expect(got.ForSale).To(BeTrue())
			Expect(got.SalePrice).To(Equal(250.0))
			Expect(got.SaleAnchor).To(Equal("overworld,48,64,-112"))
			Expect(got.RegionName).To(Equal("alice_1"))
		})

		It("rejects a second claim on the same cell", func() {
			_, err := env.Claims.Insert(ctx, newClaim(0, 0, "first"))
			Expect(err).NotTo(HaveOccurred())

			second := claim.New(claim.Position{World: "overworld", CellX: 0, CellZ: 0}, "second", bob)
			second.RegionName = "bob_1"
			_, err = env.Claims.Insert(ctx, second)
			Expect(err).To(MatchError(claim.ErrPositionTaken))
		})

		It("admits exactly one of many racing inserts", func() {
			const racers = 8

			var wg sync.WaitGroup
			errs := make([]error, racers)
			for i := range racers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c := claim.New(claim.Position{World: "overworld", CellX: 5, CellZ: 5}, "", alice)
					c.RegionName = "alice_1"
					_, errs[i] = env.Claims.Insert(ctx, c)
				}()
			}
			wg.Wait()

			winners := 0
			for _, err := range errs {
				if err == nil {
					winners++
				} else {
					Expect(err).To(MatchError(claim.ErrPositionTaken))
				}
			}
			Expect(winners).To(Equal(1))
		})

		It("allows the same cell coordinates in different worlds", func() {
			_, err := env.Claims.Insert(ctx, newClaim(0, 0, "over"))
			Expect(err).NotTo(HaveOccurred())

			other := claim.New(claim.Position{World: "the_end", CellX: 0, CellZ: 0}, "end", alice)
			other.RegionName = "alice_2"
			_, err = env.Claims.Insert(ctx, other)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Update", func() {
		It("persists ownership and sale changes", func() {
			c := newClaim(1, 1, "plot")
			id, err := env.Claims.Insert(ctx, c)
			Expect(err).NotTo(HaveOccurred())
			c.ID = id

			c.Owner = bob
			c.ForSale = false
			c.SalePrice = 0
			Expect(env.Claims.Update(ctx, c)).To(Succeed())

			claims, err := env.Claims.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims[0].Owner).To(Equal(bob))
			Expect(claims[0].ForSale).To(BeFalse())
		})

		It("reports a missing row", func() {
			c := newClaim(1, 1, "plot")
			c.ID = 9999
			Expect(env.Claims.Update(ctx, c)).To(MatchError(claim.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the row and cascades trust", func() {
			id, err := env.Claims.Insert(ctx, newClaim(2, 2, "plot"))
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Claims.AddTrust(ctx, id, bob)).To(Succeed())

			Expect(env.Claims.Delete(ctx, id)).To(Succeed())

			claims, err := env.Claims.LoadAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims).To(BeEmpty())

			var trustRows int
			err = env.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trusted_players`).Scan(&trustRows)
			Expect(err).NotTo(HaveOccurred())
			Expect(trustRows).To(BeZero())
		})
	})

	Describe("NameExists", func() {
		It("matches case-insensitively and per-owner", func() {
			_, err := env.Claims.Insert(ctx, newClaim(0, 0, "Home"))
			Expect(err).NotTo(HaveOccurred())

			exists, err := env.Claims.NameExists(ctx, alice.ID, "hOmE")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = env.Claims.NameExists(ctx, bob.ID, "home")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("NextSuffix", func() {
		It("returns the smallest free suffix", func() {
			for i, name := range []string{"Alice_1", "alice_3"} {
				_, err := env.Claims.Insert(ctx, newClaim(i, 0, name))
				Expect(err).NotTo(HaveOccurred())
			}

			n, err := env.Claims.NextSuffix(ctx, alice.ID, "Alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})

		It("ignores names of other owners", func() {
			c := claim.New(claim.Position{World: "overworld", CellX: 0, CellZ: 0}, "alice_1", bob)
			c.RegionName = "bob_1"
			_, err := env.Claims.Insert(ctx, c)
			Expect(err).NotTo(HaveOccurred())

			n, err := env.Claims.NextSuffix(ctx, alice.ID, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})
	})

	Describe("trust rows", func() {
		It("adds, lists, removes, and clears", func() {
			id, err := env.Claims.Insert(ctx, newClaim(0, 0, "home"))
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Claims.AddTrust(ctx, id, bob)).To(Succeed())
			Expect(env.Claims.AddTrust(ctx, id, bob)).To(MatchError(claim.ErrTrustExists))

			listed, err := env.Claims.ListTrust(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(ConsistOf(bob))

			Expect(env.Claims.RemoveTrust(ctx, id, bob.ID)).To(Succeed())
			Expect(env.Claims.RemoveTrust(ctx, id, bob.ID)).To(MatchError(claim.ErrNotFound))

			Expect(env.Claims.AddTrust(ctx, id, bob)).To(Succeed())
			Expect(env.Claims.ClearTrust(ctx, id)).To(Succeed())
			listed, err = env.Claims.ListTrust(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(BeEmpty())
		})
	})
})
