package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	usermodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/user"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with initial users",
	Long:  `Seed the database with an administrator and sample clinical staff accounts for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		_, db, err := openDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			if err := db.Exec("DELETE FROM users").Error; err != nil {
				log.Fatalf("failed to clear users: %v", err)
			}
			fmt.Println("Cleared existing users")
		}

		seedUsers := []struct {
			Username string
			Password string
			Role     string
			FullName string
			Email    string
		}{
			{"admin", "changeme-admin", "admin", "System Administrator", "admin@clinic.local"},
			{"tech1", "changeme-tech", "technician", "Imaging Technician", "tech1@clinic.local"},
			{"rad1", "changeme-rad", "radiologist", "Staff Radiologist", "rad1@clinic.local"},
		}

		for _, s := range seedUsers {
			var count int64
			if err := db.Model(&usermodel.User{}).Where("username = ?", s.Username).Count(&count).Error; err != nil {
				log.Fatalf("failed to check user %s: %v", s.Username, err)
			}
			if count > 0 {
				fmt.Printf("user %s already exists; skipping\n", s.Username)
				continue
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), cfg.Security.Cost())
			if err != nil {
				log.Fatalf("failed to hash password for %s: %v", s.Username, err)
			}

			row := usermodel.User{
				Username:     s.Username,
				PasswordHash: string(hash),
				Role:         s.Role,
				FullName:     s.FullName,
				Email:        s.Email,
				IsActive:     true,
				CreatedAt:    time.Now(),
			}
			if err := db.Create(&row).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", s.Username, err)
			}
			fmt.Printf("Seeded user: %s (%s)\n", s.Username, s.Role)
		}

		fmt.Println("Seeding complete. Change the default passwords before real use.")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing users before seeding")
}
