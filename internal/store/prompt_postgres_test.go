package store_test

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock/v4"

	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/store"
)

var _ = Describe("PostgresPromptStore", func() {
	var (
		ctx     context.Context
		mock    pgxmock.PgxPoolIface
		prompts store.PromptStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mock, err = pgxmock.NewPool()
		Expect(err).NotTo(HaveOccurred())
		prompts = store.NewPostgresPromptStore(mock)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		mock.Close()
	})

	Describe("Get", func() {
		It("returns the stored value", func() {
			mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM system_prompts WHERE key = $1")).
				WithArgs("C1:general").
				WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("あなたは親切です"))

			value, err := prompts.Get(ctx, "C1:general")

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("あなたは親切です"))
		})

		It("returns empty for a missing key", func() {
			mock.ExpectQuery("SELECT value FROM system_prompts").
				WithArgs("C2:random").
				WillReturnError(pgx.ErrNoRows)

			value, err := prompts.Get(ctx, "C2:random")

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(BeEmpty())
		})

		It("wraps driver errors", func() {
			boom := errors.New("connection reset")
			mock.ExpectQuery("SELECT value FROM system_prompts").
				WithArgs("C1:general").
				WillReturnError(boom)

			_, err := prompts.Get(ctx, "C1:general")

			Expect(err).To(MatchError(boom))
		})
	})

	Describe("Set", func() {
		It("upserts the prompt", func() {
			mock.ExpectExec("INSERT INTO system_prompts .* ON CONFLICT \\(key\\) DO UPDATE").
				WithArgs("C1:general", "be brief").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			Expect(prompts.Set(ctx, "C1:general", "be brief")).To(Succeed())
		})
	})

	Describe("List", func() {
		It("returns prompts ordered by key", func() {
			updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
			mock.ExpectQuery("SELECT key, value, updated_at FROM system_prompts ORDER BY key").
				WillReturnRows(pgxmock.NewRows([]string{"key", "value", "updated_at"}).
					AddRow("C1:general", "a", updated).
					AddRow("C2:random", "b", updated))

			list, err := prompts.List(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(Equal([]model.SystemPrompt{
				{Key: "C1:general", Text: "a", UpdatedAt: updated},
				{Key: "C2:random", Text: "b", UpdatedAt: updated},
			}))
		})
	})

	Describe("EnsureSchema", func() {
		It("creates the table", func() {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS system_prompts").
				WillReturnResult(pgxmock.NewResult("CREATE", 0))

			Expect(store.EnsureSchema(ctx, mock)).To(Succeed())
		})
	})
})
