package audit

import (
	"encoding/json"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"github.com/sirupsen/logrus"
)

// Record appends one entry to the audit ledger. The ledger is append-only;
// nothing in normal operation mutates or deletes entries. A failed write is
// logged and swallowed so auditing never fails the business action.
func Record(userID *uint, action, target string, metadata interface{}) {
	entry := models.AuditLog{
		UserID: userID,
		Action: action,
		Target: target,
	}

	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			entry.Metadata = b
		}
	}

	if err := database.GetDB().Create(&entry).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"action": action,
			"target": target,
		}).Error("Failed to write audit log entry")
	}
}

// RecordForUser is Record with a concrete user id
func RecordForUser(userID uint, action, target string, metadata interface{}) {
	Record(&userID, action, target, metadata)
}
