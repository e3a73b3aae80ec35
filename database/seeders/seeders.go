package seeders

import (
	"log"
	"os"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/utils"
)

// Seed runs all seeders
func Seed() {
	SeedDarajahs()
	SeedHizbs()
	SeedHizbGroups()
	SeedAdminUser()
}

// SeedDarajahs seeds the academic class levels
func SeedDarajahs() {
	var count int64
	database.DB.Model(&models.Darajah{}).Count(&count)
	if count > 0 {
		return
	}

	names := []string{
		"Darajah 1", "Darajah 2", "Darajah 3", "Darajah 4",
		"Darajah 5", "Darajah 6", "Darajah 7",
	}
	for _, name := range names {
		if err := database.DB.Create(&models.Darajah{Name: name}).Error; err != nil {
			log.Printf("Error seeding darajah %s: %v", name, err)
		}
	}
	log.Println("Darajahs seeded")
}

// SeedHizbs seeds the residential cohorts
func SeedHizbs() {
	var count int64
	database.DB.Model(&models.Hizb{}).Count(&count)
	if count > 0 {
		return
	}

	names := []string{"Hizb A", "Hizb B", "Hizb C", "Hizb D"}
	for _, name := range names {
		if err := database.DB.Create(&models.Hizb{Name: name}).Error; err != nil {
			log.Printf("Error seeding hizb %s: %v", name, err)
		}
	}
	log.Println("Hizbs seeded")
}

// SeedHizbGroups seeds four groups per hizb
func SeedHizbGroups() {
	var count int64
	database.DB.Model(&models.HizbGroup{}).Count(&count)
	if count > 0 {
		return
	}

	var hizbs []models.Hizb
	if err := database.DB.Find(&hizbs).Error; err != nil {
		log.Printf("Error loading hizbs for group seeding: %v", err)
		return
	}

	for _, hizb := range hizbs {
		for groupNumber := 1; groupNumber <= 4; groupNumber++ {
			group := models.HizbGroup{
				HizbID:      hizb.ID,
				GroupNumber: groupNumber,
			}
			if err := database.DB.Create(&group).Error; err != nil {
				log.Printf("Error seeding group %d of %s: %v", groupNumber, hizb.Name, err)
			}
		}
	}
	log.Println("Hizb groups seeded")
}

// SeedAdminUser creates the initial admin account if no users exist. The
// password comes from ADMIN_PASSWORD or defaults for local development.
func SeedAdminUser() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Printf("Error hashing admin password: %v", err)
		return
	}

	admin := models.User{
		Username: "admin",
		Password: hashed,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		log.Printf("Error seeding admin user: %v", err)
		return
	}
	log.Println("Admin user seeded")
}
