package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/milestones-api/internal/database"
)

type outboxKey struct{}

type pendingPush struct {
	userID uuid.UUID
	title  string
	body   string
	data   map[string]string
}

// outbox holds the pushes queued by Notify until their transaction commits.
type outbox struct {
	pending []pendingPush
}

// deliver sends one push. Tests swap it out.
var deliver = func(p pendingPush) {
	if Push.Enabled() {
		go Push.SendToUser(context.Background(), p.userID, p.title, p.body, p.data)
	}
}

// Transaction runs fn in a database transaction. Pushes queued by Notify
// inside fn are delivered once the transaction has committed and dropped if
// it rolls back.
func Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	box := &outbox{}
	if err := database.DB.WithContext(context.WithValue(ctx, outboxKey{}, box)).Transaction(fn); err != nil {
		return err
	}
	for _, p := range box.pending {
		deliver(p)
	}
	return nil
}

// queuePush defers p to the enclosing Transaction, or sends it straight away
// when tx was not opened by one.
func queuePush(tx *gorm.DB, p pendingPush) {
	if ctx := tx.Statement.Context; ctx != nil {
		if box, ok := ctx.Value(outboxKey{}).(*outbox); ok {
			box.pending = append(box.pending, p)
			return
		}
	}
	deliver(p)
}
