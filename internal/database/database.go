package database

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/arnold/milestones-api/internal/config"
	"github.com/arnold/milestones-api/internal/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var dialector gorm.Dialector

	// Use PostgreSQL if URL starts with postgres, otherwise SQLite
	if strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func Migrate() error {
	return DB.AutoMigrate(
		&models.Goal{},
		&models.Milestone{},
		&models.RecurringAction{},
		&models.RecurringActionLog{},
		&models.OneTimeAction{},
		&models.Notification{},
		&models.DeviceToken{},
		&models.Activity{},
	)
}

// GoalTree preloads everything progress and projection need for a goal.
func GoalTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("milestones.start_date ASC, milestones.created_at ASC")
		}).
		Preload("Milestones.RecurringActions", func(db *gorm.DB) *gorm.DB {
			return db.Order("recurring_actions.created_at ASC")
		}).
		Preload("Milestones.RecurringActions.Logs").
		Preload("Milestones.OneTimeActions", func(db *gorm.DB) *gorm.DB {
			return db.Order("one_time_actions.deadline ASC, one_time_actions.created_at ASC")
		})
}

// MilestoneTree is GoalTree for a single milestone.
func MilestoneTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("RecurringActions", func(db *gorm.DB) *gorm.DB {
			return db.Order("recurring_actions.created_at ASC")
		}).
		Preload("RecurringActions.Logs").
		Preload("OneTimeActions", func(db *gorm.DB) *gorm.DB {
			return db.Order("one_time_actions.deadline ASC, one_time_actions.created_at ASC")
		})
}

// OwnedMilestones restricts a milestones query to live goals of userID.
func OwnedMilestones(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN goals ON goals.id = milestones.goal_id AND goals.deleted_at IS NULL").
			Where("goals.user_id = ?", userID)
	}
}

// ForUpdate row-locks the queried table until the transaction ends. SQLite
// has no row locks and already serialises writers.
func ForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() != "postgres" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}})
}
