package controllers

import (
	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/attendance"
	"github.com/Mala4505/tanbeeh-dashboard-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AssignmentController manages the role-to-students scope assignments.
// All mutations are admin only; scope resolution reads these tables.
type AssignmentController struct{}

// requireUserWithRole loads a user and checks it carries the expected role
func requireUserWithRole(userID uint, roles ...string) (*models.User, error) {
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	for _, role := range roles {
		if user.Role == role {
			return &user, nil
		}
	}
	return nil, fiber.NewError(fiber.StatusBadRequest, "User does not hold the required role")
}

// loadStudents resolves student IDs, failing if any is unknown
func loadStudents(ids []uint) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []models.Student
	if err := database.DB.Where("id IN ?", ids).Find(&students).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to load students")
	}
	if len(students) != len(ids) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "One or more student IDs are unknown")
	}
	return students, nil
}

// UpsertHizbAssignment sets the prefect and deputy for a hizb
func (asc *AssignmentController) UpsertHizbAssignment(c *fiber.Ctx) error {
	var req struct {
		HizbID          uint `json:"hizb_id" validate:"required"`
		PrefectID       uint `json:"prefect_id" validate:"required"`
		DeputyPrefectID uint `json:"deputy_prefect_id" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.Validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hizb_id, prefect_id and deputy_prefect_id are required"})
	}

	var hizb models.Hizb
	if err := database.DB.First(&hizb, req.HizbID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Hizb not found"})
	}
	if _, err := requireUserWithRole(req.PrefectID, models.RolePrefect); err != nil {
		return err
	}
	if _, err := requireUserWithRole(req.DeputyPrefectID, models.RoleDeputyPrefect); err != nil {
		return err
	}

	var assignment models.HizbAssignment
	err := database.DB.Where("hizb_id = ?", req.HizbID).First(&assignment).Error
	if err == gorm.ErrRecordNotFound {
		assignment = models.HizbAssignment{
			HizbID:          req.HizbID,
			PrefectID:       req.PrefectID,
			DeputyPrefectID: req.DeputyPrefectID,
		}
		if err := database.DB.Create(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load assignment"})
	} else {
		assignment.PrefectID = req.PrefectID
		assignment.DeputyPrefectID = req.DeputyPrefectID
		if err := database.DB.Save(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update assignment"})
		}
	}

	return c.JSON(fiber.Map{"message": "Hizb assignment saved", "assignment": assignment})
}

// UpsertMasoolAssignment sets a masool's darajah and student list
func (asc *AssignmentController) UpsertMasoolAssignment(c *fiber.Ctx) error {
	var req struct {
		MasoolID   uint   `json:"masool_id" validate:"required"`
		DarajahID  uint   `json:"darajah_id" validate:"required"`
		StudentIDs []uint `json:"student_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.Validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "masool_id and darajah_id are required"})
	}

	if _, err := requireUserWithRole(req.MasoolID, models.RoleMasool); err != nil {
		return err
	}
	var darajah models.Darajah
	if err := database.DB.First(&darajah, req.DarajahID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Darajah not found"})
	}
	students, err := loadStudents(req.StudentIDs)
	if err != nil {
		return err
	}

	var assignment models.MasoolAssignment
	dberr := database.DB.Where("masool_id = ?", req.MasoolID).First(&assignment).Error
	if dberr == gorm.ErrRecordNotFound {
		assignment = models.MasoolAssignment{MasoolID: req.MasoolID, DarajahID: req.DarajahID}
		if err := database.DB.Create(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
		}
	} else if dberr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load assignment"})
	} else {
		assignment.DarajahID = req.DarajahID
		if err := database.DB.Save(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update assignment"})
		}
	}

	if err := database.DB.Model(&assignment).Association("Students").Replace(students); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update student list"})
	}

	return c.JSON(fiber.Map{"message": "Masool assignment saved", "assignment": assignment})
}

// UpsertMuaddibAssignment sets a muaddib's hizb group and student list
func (asc *AssignmentController) UpsertMuaddibAssignment(c *fiber.Ctx) error {
	var req struct {
		MuaddibID   uint   `json:"muaddib_id" validate:"required"`
		HizbGroupID uint   `json:"hizb_group_id" validate:"required"`
		StudentIDs  []uint `json:"student_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.Validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "muaddib_id and hizb_group_id are required"})
	}

	if _, err := requireUserWithRole(req.MuaddibID, models.RoleMuaddib); err != nil {
		return err
	}
	var group models.HizbGroup
	if err := database.DB.First(&group, req.HizbGroupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Hizb group not found"})
	}
	students, err := loadStudents(req.StudentIDs)
	if err != nil {
		return err
	}

	var assignment models.MuaddibGroupAssignment
	dberr := database.DB.Where("muaddib_id = ?", req.MuaddibID).First(&assignment).Error
	if dberr == gorm.ErrRecordNotFound {
		assignment = models.MuaddibGroupAssignment{MuaddibID: req.MuaddibID, HizbGroupID: req.HizbGroupID}
		if err := database.DB.Create(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
		}
	} else if dberr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load assignment"})
	} else {
		assignment.HizbGroupID = req.HizbGroupID
		if err := database.DB.Save(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update assignment"})
		}
	}

	if err := database.DB.Model(&assignment).Association("Students").Replace(students); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update student list"})
	}

	// The group scope filters on students.hizb_group_id, so membership is
	// stamped on the students themselves
	if err := attendance.SetGroupStudents(database.DB, req.HizbGroupID, req.StudentIDs); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update group membership"})
	}

	return c.JSON(fiber.Map{"message": "Muaddib assignment saved", "assignment": assignment})
}

// UpsertLajnatAssignment sets the students whose flags route to a lajnat member
func (asc *AssignmentController) UpsertLajnatAssignment(c *fiber.Ctx) error {
	var req struct {
		LajnatMemberID uint   `json:"lajnat_member_id" validate:"required"`
		StudentIDs     []uint `json:"student_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.Validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lajnat_member_id is required"})
	}

	if _, err := requireUserWithRole(req.LajnatMemberID, models.RoleLajnatMember); err != nil {
		return err
	}
	students, err := loadStudents(req.StudentIDs)
	if err != nil {
		return err
	}

	var assignment models.LajnatAssignment
	dberr := database.DB.Where("lajnat_member_id = ?", req.LajnatMemberID).First(&assignment).Error
	if dberr == gorm.ErrRecordNotFound {
		assignment = models.LajnatAssignment{LajnatMemberID: req.LajnatMemberID}
		if err := database.DB.Create(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
		}
	} else if dberr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load assignment"})
	} else {
		if err := database.DB.Save(&assignment).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update assignment"})
		}
	}

	if err := database.DB.Model(&assignment).Association("Students").Replace(students); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update student list"})
	}

	return c.JSON(fiber.Map{"message": "Lajnat assignment saved", "assignment": assignment})
}

// ListAssignments returns all scope assignments (admin only)
func (asc *AssignmentController) ListAssignments(c *fiber.Ctx) error {
	var hizbAssignments []models.HizbAssignment
	var masoolAssignments []models.MasoolAssignment
	var muaddibAssignments []models.MuaddibGroupAssignment
	var lajnatAssignments []models.LajnatAssignment

	database.DB.Preload("Hizb").Preload("Prefect").Preload("DeputyPrefect").Find(&hizbAssignments)
	database.DB.Preload("Masool").Preload("Darajah").Preload("Students").Find(&masoolAssignments)
	database.DB.Preload("Muaddib").Preload("HizbGroup").Preload("Students").Find(&muaddibAssignments)
	database.DB.Preload("LajnatMember").Preload("Students").Find(&lajnatAssignments)

	return c.JSON(fiber.Map{
		"hizb":    hizbAssignments,
		"masool":  masoolAssignments,
		"muaddib": muaddibAssignments,
		"lajnat":  lajnatAssignments,
	})
}
