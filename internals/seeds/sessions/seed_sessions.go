package sessions

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"essaysmaster_backend/internals/features/essays/revision/service"
)

type SessionSeed struct {
	SubmissionID    uuid.UUID `json:"submission_id"`
	StudentID       uuid.UUID `json:"student_id"`
	RoundsCompleted int       `json:"rounds_completed"`
}

// SeedSessionsFromJSON creates (or fast-forwards) sessions listed in filePath.
// Re-running is safe: sessions are get-or-create and rounds only move forward.
func SeedSessionsFromJSON(ctx context.Context, svc *service.SessionService, filePath string) (int, error) {
	log.Println("📥 Reading session seed file:", filePath)

	content, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var data []SessionSeed
	if err := sonic.Unmarshal(content, &data); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	seeded := 0
	for _, item := range data {
		sess, err := svc.GetOrCreate(ctx, item.SubmissionID, item.StudentID)
		if err != nil {
			log.Printf("❌ Failed to seed submission=%s student=%s: %v", item.SubmissionID, item.StudentID, err)
			continue
		}
		if item.RoundsCompleted > sess.RevisionSessionRoundsCompleted {
			if _, err := svc.Advance(ctx, sess, item.RoundsCompleted); err != nil {
				log.Printf("❌ Failed to advance submission=%s to round %d: %v", item.SubmissionID, item.RoundsCompleted, err)
				continue
			}
		}
		seeded++
		log.Printf("✅ Seeded submission=%s rounds_completed=%d", item.SubmissionID, item.RoundsCompleted)
	}
	return seeded, nil
}
