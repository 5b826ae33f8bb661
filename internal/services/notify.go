package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arnold/milestones-api/internal/models"
)

// Notify stores an in-app notification and queues a push to the owner's
// devices for after the transaction commits.
func Notify(tx *gorm.DB, userID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) error {
	notif := models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
	}

	pushData := map[string]string{"type": notifType}
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		notif.Metadata = datatypes.JSON(data)
		for k, v := range metadata {
			pushData[k] = fmt.Sprintf("%v", v)
		}
	}

	if err := tx.Create(&notif).Error; err != nil {
		return err
	}

	queuePush(tx, pendingPush{userID: userID, title: title, body: body, data: pushData})
	return nil
}

// LogActivity appends an entry to a goal's activity feed.
func LogActivity(tx *gorm.DB, goalID, userID uuid.UUID, actionType string, targetID *uuid.UUID, metadata map[string]interface{}) error {
	activity := models.Activity{
		GoalID:     goalID,
		UserID:     userID,
		ActionType: actionType,
		TargetID:   targetID,
	}

	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		activity.Metadata = datatypes.JSON(data)
	}

	return tx.Create(&activity).Error
}
