// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

//go:build integration

package claims_test

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gridhold/gridhold/internal/economy"
)

var _ = Describe("Ledger", func() {
	var (
		ctx context.Context
		p   ulid.ULID
	)

	balance := func() float64 {
		var b float64
		err := env.pool.QueryRow(ctx,
			`SELECT balance FROM accounts WHERE principal_id = $1`, p.String()).Scan(&b)
		Expect(err).NotTo(HaveOccurred())
		return b
	}

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		p = ulid.Make()
	})

	It("creates the account on first deposit and accumulates", func() {
		Expect(env.Ledger.Deposit(ctx, p, 100)).To(Succeed())
		Expect(env.Ledger.Deposit(ctx, p, 50)).To(Succeed())
		Expect(balance()).To(Equal(150.0))
	})

	It("treats a missing account as a zero balance", func() {
		covered, err := env.Ledger.Has(ctx, p, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(covered).To(BeFalse())

		covered, err = env.Ledger.Has(ctx, p, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(covered).To(BeTrue())
	})

	It("withdraws only when the balance covers the amount", func() {
		Expect(env.Ledger.Deposit(ctx, p, 100)).To(Succeed())

		Expect(env.Ledger.Withdraw(ctx, p, 60)).To(Succeed())
		Expect(balance()).To(Equal(40.0))

		Expect(env.Ledger.Withdraw(ctx, p, 50)).To(MatchError(economy.ErrInsufficientFunds))
		Expect(balance()).To(Equal(40.0))
	})

	It("never overdraws under concurrent withdrawals", func() {
		const racers = 8
		Expect(env.Ledger.Deposit(ctx, p, 100)).To(Succeed())

		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = env.Ledger.Withdraw(ctx, p, 60)
			}()
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				Expect(err).To(MatchError(economy.ErrInsufficientFunds))
			}
		}
		Expect(winners).To(Equal(1))
		Expect(balance()).To(Equal(40.0))
	})
})
