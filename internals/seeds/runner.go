package seeds

import (
	"context"
	"log"
	"path/filepath"

	"essaysmaster_backend/internals/features/essays/revision/service"
	"essaysmaster_backend/internals/seeds/sessions"
)

// RunAllSeeds loads every seed file found under dir.
func RunAllSeeds(ctx context.Context, svc *service.SessionService, dir string) error {
	//* Revision sessions
	n, err := sessions.SeedSessionsFromJSON(ctx, svc, filepath.Join(dir, "sessions", "data_sessions.json"))
	if err != nil {
		return err
	}
	log.Printf("🌱 %d revision sessions seeded", n)
	return nil
}
