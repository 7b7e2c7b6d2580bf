// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/internal/auth/postgres"
)

const (
	identity   = "ada@example.edu"
	credential = "Analytical1"
)

func newService() *auth.Service {
	svc, err := auth.NewService(auth.ServiceConfig{
		Accounts: postgres.NewAccountRepository(testPool),
		Sessions: postgres.NewSessionRepository(testPool),
		Audit:    postgres.NewAuditRepository(testPool),
		Hasher:   auth.NewPBKDF2Hasher(auth.MinPBKDF2Iterations),
		Limiter:  auth.AllowAll{},
	})
	Expect(err).NotTo(HaveOccurred())
	return svc
}

func register(ctx context.Context, svc *auth.Service, id, nickname string) {
	_, err := svc.Register(ctx, auth.RegisterRequest{
		Identity:      id,
		Credential:    credential,
		Nickname:      nickname,
		GroupID:       "cs101",
		OriginAddress: "10.0.0.1",
	})
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("AccountRepository", func() {
	var repo *postgres.AccountRepository

	BeforeEach(func(ctx SpecContext) {
		resetTables(ctx)
		repo = postgres.NewAccountRepository(testPool)
	})

	It("stores account, profile and group", func(ctx SpecContext) {
		register(ctx, newService(), identity, "ada")

		account, err := repo.GetByIdentity(ctx, identity)
		Expect(err).NotTo(HaveOccurred())
		Expect(account.FailedAttempts).To(BeZero())
		Expect(account.LockedUntil).To(BeNil())

		profile, err := repo.GetProfile(ctx, identity)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.Nickname).To(Equal("ada"))
		Expect(profile.Groups).To(Equal([]string{"cs101"}))
		Expect(profile.Settings).To(BeEmpty())
	})

	It("rejects a nickname differing only in case", func(ctx SpecContext) {
		register(ctx, newService(), identity, "ada")

		taken, err := repo.NicknameExists(ctx, "ADA")
		Expect(err).NotTo(HaveOccurred())
		Expect(taken).To(BeTrue())

		account := &auth.Account{Identity: "grace@example.edu", CredentialHash: "h", CredentialSalt: "s", CreatedAt: time.Now()}
		err = repo.Create(ctx, account, auth.NewProfile(account.Identity, "ADA", ""), "")
		Expect(err).To(MatchError(auth.ErrAlreadyExists))

		_, err = repo.GetByIdentity(ctx, "grace@example.edu")
		Expect(err).To(MatchError(auth.ErrNotFound), "failed create must not leave an account row")
	})

	It("serializes concurrent lockout updates", func(ctx SpecContext) {
		register(ctx, newService(), identity, "ada")

		const workers = 10
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := repo.UpdateLockout(ctx, identity, func(s auth.LockoutState) (auth.LockoutState, error) {
					s.FailedAttempts++
					return s, nil
				})
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		account, err := repo.GetByIdentity(ctx, identity)
		Expect(err).NotTo(HaveOccurred())
		Expect(account.FailedAttempts).To(Equal(workers))
	})
})

var _ = Describe("Service on PostgreSQL", func() {
	BeforeEach(func(ctx SpecContext) {
		resetTables(ctx)
	})

	It("locks after five failures and emits one lock event", func(ctx SpecContext) {
		svc := newService()
		register(ctx, svc, identity, "ada")

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: identity, Credential: "wrong-Pass1", OriginAddress: "10.0.0.1"})
				Expect(err).To(HaveOccurred())
			}()
		}
		wg.Wait()

		locked, err := svc.AuditEvents(ctx, auth.AuditFilter{Kind: auth.EventAccountLocked})
		Expect(err).NotTo(HaveOccurred())
		Expect(locked).To(HaveLen(1))

		_, err = svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: identity, Credential: credential})
		Expect(auth.KindOf(err)).To(Equal(auth.KindAccountLocked))
	})

	It("issues, validates and invalidates sessions", func(ctx SpecContext) {
		svc := newService()
		register(ctx, svc, identity, "ada")

		result, err := svc.Authenticate(ctx, auth.AuthenticateRequest{Identity: identity, Credential: credential, OriginAddress: "10.0.0.1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Profile).NotTo(BeNil())
		Expect(result.Profile.Groups).To(ConsistOf("cs101"))

		session, err := svc.ValidateSession(ctx, result.Token, "10.0.0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Identity).To(Equal(identity))

		Expect(svc.InvalidateSession(ctx, result.Token, "10.0.0.1")).To(Succeed())
		_, err = svc.ValidateSession(ctx, result.Token, "10.0.0.1")
		Expect(auth.KindOf(err)).To(Equal(auth.KindSessionExpiredOrUnknown))

		purged, err := svc.PurgeSessions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(purged).To(Equal(int64(1)))
	})
})

var _ = Describe("AuditRepository", func() {
	var repo *postgres.AuditRepository

	BeforeEach(func(ctx SpecContext) {
		resetTables(ctx)
		repo = postgres.NewAuditRepository(testPool)
	})

	It("keeps the most recent events in order", func(ctx SpecContext) {
		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for i := range 5 {
			event := &auth.AuditEvent{ID: ulid.Make(), OccurredAt: at.Add(time.Duration(i) * time.Second), Kind: auth.EventLoginFailed, Identity: identity}
			Expect(repo.Append(ctx, event)).To(Succeed())
			Expect(event.Seq).To(Equal(int64(i + 1)))
		}

		events, err := repo.List(ctx, auth.AuditFilter{Identity: identity, Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Seq).To(Equal(int64(4)))
		Expect(events[1].Seq).To(Equal(int64(5)))

		all, err := repo.List(ctx, auth.AuditFilter{Since: at.Add(2 * time.Second)})
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
	})

	It("refuses to modify stored events", func(ctx SpecContext) {
		Expect(repo.Append(ctx, &auth.AuditEvent{ID: ulid.Make(), OccurredAt: time.Now(), Kind: auth.EventLogin, Success: true})).To(Succeed())

		_, err := testPool.Exec(ctx, `UPDATE audit_events SET success = FALSE`)
		Expect(err).To(MatchError(ContainSubstring("append-only")))
	})
})
