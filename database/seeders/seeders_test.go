package seeders

import (
	"testing"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSeederDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Darajah{},
		&models.Hizb{},
		&models.HizbGroup{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	database.DB = db
	return db
}

func TestSeedCreatesFourGroupsPerHizb(t *testing.T) {
	db := newSeederDB(t)

	Seed()

	var hizbs []models.Hizb
	if err := db.Find(&hizbs).Error; err != nil {
		t.Fatalf("load hizbs: %v", err)
	}
	if len(hizbs) != 4 {
		t.Fatalf("hizbs = %d, want 4", len(hizbs))
	}

	for _, hizb := range hizbs {
		var groups []models.HizbGroup
		db.Where("hizb_id = ?", hizb.ID).Order("group_number ASC").Find(&groups)
		if len(groups) != 4 {
			t.Errorf("%s has %d groups, want 4", hizb.Name, len(groups))
			continue
		}
		for i, g := range groups {
			if g.GroupNumber != i+1 {
				t.Errorf("%s group[%d].GroupNumber = %d, want %d", hizb.Name, i, g.GroupNumber, i+1)
			}
		}
	}

	var darajahs int64
	db.Model(&models.Darajah{}).Count(&darajahs)
	if darajahs != 7 {
		t.Errorf("darajahs = %d, want 7", darajahs)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := newSeederDB(t)

	Seed()
	Seed()

	var groups, users int64
	db.Model(&models.HizbGroup{}).Count(&groups)
	db.Model(&models.User{}).Count(&users)
	if groups != 16 {
		t.Errorf("groups = %d after reseeding, want 16", groups)
	}
	if users != 1 {
		t.Errorf("users = %d after reseeding, want the single admin", users)
	}
}
