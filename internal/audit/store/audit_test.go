package store_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/clinical-records/internal/audit"
	auditStore "github.com/frahmantamala/clinical-records/internal/audit/store"
	datamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/audit"
)

func TestAuditStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Store Suite")
}

var _ = Describe("Audit Repository", func() {
	var (
		db   *gorm.DB
		repo audit.Repository
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&datamodel.Entry{})
		Expect(err).NotTo(HaveOccurred())

		repo = auditStore.NewAuditRepository(db)
	})

	userID := func(id int64) *int64 { return &id }

	Describe("Append", func() {
		It("should assign consecutive sequence numbers starting at one", func() {
			for i := 1; i <= 5; i++ {
				entry := &audit.Entry{
					Timestamp: time.Now(),
					Action:    audit.ActionRead,
					Outcome:   audit.OutcomeSuccess,
				}
				Expect(repo.Append(entry)).To(Succeed())
				Expect(entry.Seq).To(Equal(int64(i)))
			}
		})

		It("should persist every column", func() {
			ts := time.Now().Truncate(time.Second)
			entry := &audit.Entry{
				Timestamp:  ts,
				UserID:     userID(7),
				Role:       "technician",
				Action:     audit.ActionWrite,
				Resource:   "patient",
				ResourceID: "rec-1",
				Outcome:    audit.OutcomeSuccess,
				Reason:     "created",
			}
			Expect(repo.Append(entry)).To(Succeed())

			got, err := repo.Query(audit.QueryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(*got[0].UserID).To(Equal(int64(7)))
			Expect(got[0].Role).To(Equal("technician"))
			Expect(got[0].Action).To(Equal(audit.ActionWrite))
			Expect(got[0].Resource).To(Equal("patient"))
			Expect(got[0].ResourceID).To(Equal("rec-1"))
			Expect(got[0].Outcome).To(Equal(audit.OutcomeSuccess))
			Expect(got[0].Reason).To(Equal("created"))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			seed := []*audit.Entry{
				{Timestamp: base, UserID: userID(1), Action: audit.ActionLogin, Outcome: audit.OutcomeSuccess},
				{Timestamp: base.Add(time.Minute), UserID: userID(2), Action: audit.ActionRead, Outcome: audit.OutcomeSuccess},
				{Timestamp: base.Add(2 * time.Minute), UserID: userID(2), Action: audit.ActionWrite, Outcome: audit.OutcomeSuccess},
				{Timestamp: base.Add(3 * time.Minute), UserID: userID(1), Action: audit.ActionPermissionDenied, Outcome: audit.OutcomeFailure},
			}
			for _, e := range seed {
				Expect(repo.Append(e)).To(Succeed())
			}
		})

		It("should return entries in ascending sequence order", func() {
			got, err := repo.Query(audit.QueryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(4))
			for i, e := range got {
				Expect(e.Seq).To(Equal(int64(i + 1)))
			}
		})

		It("should filter by user", func() {
			got, err := repo.Query(audit.QueryFilter{UserID: userID(2)})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
		})

		It("should filter by action", func() {
			action := audit.ActionPermissionDenied
			got, err := repo.Query(audit.QueryFilter{Action: &action})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Outcome).To(Equal(audit.OutcomeFailure))
		})

		It("should filter by time range", func() {
			from := time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC)
			to := time.Date(2026, 3, 1, 9, 2, 0, 0, time.UTC)
			got, err := repo.Query(audit.QueryFilter{From: &from, To: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
		})

		It("should honor the limit", func() {
			got, err := repo.Query(audit.QueryFilter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].Seq).To(Equal(int64(1)))
		})
	})
})
