package store_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/auth"
	authStore "github.com/frahmantamala/clinical-records/internal/auth/store"
	datamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/user"
	"github.com/frahmantamala/clinical-records/internal/rbac"
)

func TestUserStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Store Suite")
}

var _ = Describe("User Repository", func() {
	var (
		db   *gorm.DB
		repo auth.RepositoryAPI
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&datamodel.User{})
		Expect(err).NotTo(HaveOccurred())

		repo = authStore.NewUserRepository(db)
	})

	newUser := func(username string, role rbac.Role) *auth.User {
		return &auth.User{
			Username: username,
			Role:     role,
			FullName: "Test " + username,
			IsActive: true,
		}
	}

	Describe("Create", func() {
		It("should create a user and fill in the id", func() {
			user := newUser("tech1", rbac.RoleTechnician)

			Expect(repo.Create(user, "hash")).To(Succeed())
			Expect(user.ID).To(BeNumerically(">", 0))
			Expect(user.CreatedAt).NotTo(BeZero())
		})

		It("should reject a duplicate username", func() {
			Expect(repo.Create(newUser("tech1", rbac.RoleTechnician), "hash")).To(Succeed())

			err := repo.Create(newUser("tech1", rbac.RoleRadiologist), "hash")
			Expect(err).To(MatchError(internal.ErrDuplicateUser))
		})
	})

	Describe("GetByUsername", func() {
		It("should return the user and the stored hash", func() {
			created := newUser("rad1", rbac.RoleRadiologist)
			Expect(repo.Create(created, "the-hash")).To(Succeed())

			user, hash, err := repo.GetByUsername("rad1")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal(created.ID))
			Expect(user.Role).To(Equal(rbac.RoleRadiologist))
			Expect(hash).To(Equal("the-hash"))
		})

		It("should report an unknown username", func() {
			_, _, err := repo.GetByUsername("nobody")
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("SetActive", func() {
		It("should flip the active flag", func() {
			user := newUser("tech1", rbac.RoleTechnician)
			Expect(repo.Create(user, "hash")).To(Succeed())

			Expect(repo.SetActive(user.ID, false)).To(Succeed())

			got, _, err := repo.GetByID(user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
		})
	})

	Describe("UpdatePassword", func() {
		It("should replace the stored hash", func() {
			user := newUser("tech1", rbac.RoleTechnician)
			Expect(repo.Create(user, "old-hash")).To(Succeed())

			Expect(repo.UpdatePassword(user.ID, "new-hash")).To(Succeed())

			_, hash, err := repo.GetByID(user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal("new-hash"))
		})
	})

	Describe("UpdateLastLogin", func() {
		It("should record the login time", func() {
			user := newUser("tech1", rbac.RoleTechnician)
			Expect(repo.Create(user, "hash")).To(Succeed())

			at := time.Now().Truncate(time.Second)
			Expect(repo.UpdateLastLogin(user.ID, at)).To(Succeed())

			got, _, err := repo.GetByID(user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LastLoginAt).NotTo(BeNil())
		})
	})

	Describe("List", func() {
		It("should return all users ordered by id", func() {
			Expect(repo.Create(newUser("admin", rbac.RoleAdmin), "hash")).To(Succeed())
			Expect(repo.Create(newUser("tech1", rbac.RoleTechnician), "hash")).To(Succeed())

			users, err := repo.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(2))
			Expect(users[0].Username).To(Equal("admin"))
			Expect(users[1].Username).To(Equal("tech1"))
		})
	})
})
