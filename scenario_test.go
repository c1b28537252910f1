package main_test

import (
	"crypto/rand"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/audit"
	auditStore "github.com/frahmantamala/clinical-records/internal/audit/store"
	"github.com/frahmantamala/clinical-records/internal/auth"
	authStore "github.com/frahmantamala/clinical-records/internal/auth/store"
	auditDatamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/audit"
	recordDatamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/record"
	userDatamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/user"
	"github.com/frahmantamala/clinical-records/internal/crypto"
	"github.com/frahmantamala/clinical-records/internal/rbac"
	"github.com/frahmantamala/clinical-records/internal/records"
	recordStore "github.com/frahmantamala/clinical-records/internal/records/store"
)

// End-to-end flows over a real sqlite database, with every module wired
// the way the server command wires them.
var _ = Describe("Clinical workflows", func() {
	var (
		authService   *auth.Service
		recordService *records.Service
		auditService  *audit.Service
	)

	sessionInfo := func(token string) *internal.SessionInfo {
		sess, err := authService.Validate(token)
		Expect(err).NotTo(HaveOccurred())
		return sess
	}

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&userDatamodel.User{},
			&recordDatamodel.SecureRecord{},
			&recordDatamodel.Field{},
			&auditDatamodel.Entry{},
		)
		Expect(err).NotTo(HaveOccurred())

		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		table := rbac.Default()

		key := make([]byte, 32)
		_, err = rand.Read(key)
		Expect(err).NotTo(HaveOccurred())
		cipher, err := crypto.NewService(key)
		Expect(err).NotTo(HaveOccurred())

		auditService = audit.NewService(auditStore.NewAuditRepository(db), table, log)

		users := authStore.NewUserRepository(db)
		sessions := auth.NewSessionStore(internal.DefaultSessionIdleTimeout)
		tokens := auth.NewSessionTokenCodec("integration-test-secret-32-chars!", internal.DefaultSessionIdleTimeout)
		authService = auth.NewService(users, sessions, tokens, auditService, table, log, bcrypt.MinCost)

		recordService = records.NewService(recordStore.NewRecordRepository(db), cipher, auditService, table, log)

		// bootstrap admin directly, the way the seed command does
		hash, err := auth.HashPassword("admin-password", bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(&auth.User{Username: "admin", Role: rbac.RoleAdmin, IsActive: true}, hash)).To(Succeed())
	})

	It("should carry a technician from account creation to an auditable record write", func() {
		adminToken, _, err := authService.Login(auth.LoginDTO{Username: "admin", Password: "admin-password"})
		Expect(err).NotTo(HaveOccurred())
		admin := sessionInfo(adminToken)

		_, err = authService.CreateUser(admin, auth.CreateUserDTO{
			Username: "tech1",
			Password: "tech1-password",
			Role:     "technician",
			FullName: "Imaging Technician",
		})
		Expect(err).NotTo(HaveOccurred())

		techToken, techUser, err := authService.Login(auth.LoginDTO{Username: "tech1", Password: "tech1-password"})
		Expect(err).NotTo(HaveOccurred())
		tech := sessionInfo(techToken)

		written, err := recordService.Write(tech, records.KindPatient, "", map[string]string{
			"name": "Jane Doe",
			"mrn":  "123",
		})
		Expect(err).NotTo(HaveOccurred())

		read, err := recordService.Read(tech, records.KindPatient, written.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(read.Fields).To(Equal(map[string]string{"name": "Jane Doe", "mrn": "123"}))

		entries, err := auditService.Query(admin, audit.QueryFilter{UserID: &techUser.ID})
		Expect(err).NotTo(HaveOccurred())

		var logins, writes int
		for _, e := range entries {
			switch e.Action {
			case audit.ActionLogin:
				logins++
			case audit.ActionWrite:
				writes++
			}
		}
		Expect(logins).To(Equal(1))
		Expect(writes).To(Equal(1))
	})

	It("should deny a technician's audit query and append the denial", func() {
		adminToken, _, err := authService.Login(auth.LoginDTO{Username: "admin", Password: "admin-password"})
		Expect(err).NotTo(HaveOccurred())
		admin := sessionInfo(adminToken)

		_, err = authService.CreateUser(admin, auth.CreateUserDTO{
			Username: "tech1",
			Password: "tech1-password",
			Role:     "technician",
		})
		Expect(err).NotTo(HaveOccurred())

		techToken, techUser, err := authService.Login(auth.LoginDTO{Username: "tech1", Password: "tech1-password"})
		Expect(err).NotTo(HaveOccurred())
		tech := sessionInfo(techToken)

		_, err = auditService.Query(tech, audit.QueryFilter{})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrAccessDenied.Code))

		denied := audit.ActionPermissionDenied
		entries, err := auditService.Query(admin, audit.QueryFilter{UserID: &techUser.ID, Action: &denied})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("should reject every operation after logout", func() {
		adminToken, _, err := authService.Login(auth.LoginDTO{Username: "admin", Password: "admin-password"})
		Expect(err).NotTo(HaveOccurred())

		Expect(authService.Logout(adminToken)).To(Succeed())

		_, err = authService.Validate(adminToken)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrSessionExpired.Code))
	})
})
