package services

import (
	"time"

	"github.com/arnold/milestones-api/internal/models"
)

// Location is the zone that decides which calendar day "today" is.
var Location = time.UTC

// Now is swapped out by tests.
var Now = time.Now

func Today() models.Date {
	return models.DateOf(Now().In(Location))
}
