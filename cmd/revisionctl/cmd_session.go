package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"essaysmaster_backend/internals/configs"
	"essaysmaster_backend/internals/databases/backend"
	"essaysmaster_backend/internals/features/essays/revision/ai"
	"essaysmaster_backend/internals/features/essays/revision/dto"
	"essaysmaster_backend/internals/features/essays/revision/service"
	"essaysmaster_backend/internals/seeds"
)

type runtime struct {
	storage *backend.Backend
	rounds  *service.RoundService
}

func openRuntime() (*runtime, error) {
	revCfg := configs.LoadRevisionConfig()
	aiCfg := configs.LoadAIConfig()

	storage, err := backend.Open(revCfg)
	if err != nil {
		return nil, err
	}
	client := ai.NewClient(ai.NewProvider(aiCfg), aiCfg, revCfg)
	return &runtime{
		storage: storage,
		rounds:  service.NewRoundService(storage.Store, storage.Locker, client, revCfg),
	}, nil
}

// withRuntime opens storage, runs fn under a signal-aware context and
// waits for background progress work before closing.
func withRuntime(fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.storage.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := fn(ctx, rt)

	waitCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = rt.rounds.Wait(waitCtx)
	return runErr
}

func parseIDs(f *cliFlags) (uuid.UUID, uuid.UUID, error) {
	sub, err := uuid.Parse(strings.TrimSpace(f.submission))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --submission: %w", err)
	}
	stu, err := uuid.Parse(strings.TrimSpace(f.student))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --student: %w", err)
	}
	return sub, stu, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

// describe prefixes engine errors with their kind, e.g. "busy: ...".
func describe(err error) error {
	if err == nil {
		return nil
	}
	var re *service.RoundError
	if errors.As(err, &re) {
		return fmt.Errorf("%s: %w", re.Kind, err)
	}
	return err
}

func runState(cmd *cobra.Command, f *cliFlags) error {
	sub, stu, err := parseIDs(f)
	if err != nil {
		return err
	}
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		st, err := rt.rounds.Sessions.State(ctx, sub, stu)
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, st)
	})
}

func runReset(cmd *cobra.Command, f *cliFlags) error {
	sub, stu, err := parseIDs(f)
	if err != nil {
		return err
	}
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		sess, err := rt.rounds.Sessions.Reset(ctx, sub, stu, f.round)
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, service.NewStateFromSession(sess))
	})
}

func runVersions(cmd *cobra.Command, f *cliFlags) error {
	sub, stu, err := parseIDs(f)
	if err != nil {
		return err
	}
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		rows, total, err := rt.rounds.Versions(ctx, sub, stu, f.offset, f.limit)
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, map[string]any{"total": total, "versions": rows})
	})
}

func runProgress(cmd *cobra.Command, f *cliFlags) error {
	sub, stu, err := parseIDs(f)
	if err != nil {
		return err
	}
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		rows, err := rt.rounds.ProgressOf(ctx, sub, stu)
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, dto.NewProgressResponses(rows))
	})
}

func runRound(cmd *cobra.Command, f *cliFlags) error {
	sub, stu, err := parseIDs(f)
	if err != nil {
		return err
	}
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		a, err := rt.rounds.Artifact(ctx, sub, stu, f.round)
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, dto.NewArtifactResponse(a))
	})
}

func runProcess(cmd *cobra.Command, f *cliFlags) error {
	sub, stu, err := parseIDs(f)
	if err != nil {
		return err
	}
	current, err := os.ReadFile(f.textFile)
	if err != nil {
		return fmt.Errorf("read --text-file: %w", err)
	}
	var original []byte
	if f.origFile != "" {
		if original, err = os.ReadFile(f.origFile); err != nil {
			return fmt.Errorf("read --original-file: %w", err)
		}
	}

	return withRuntime(func(ctx context.Context, rt *runtime) error {
		res, err := rt.rounds.ProcessRound(ctx, service.RoundInput{
			SubmissionID:   sub,
			StudentID:      stu,
			Round:          f.round,
			CurrentText:    string(current),
			OriginalText:   string(original),
			QuestionPrompt: f.prompt,
			StudentName:    f.name,
		})
		if err != nil {
			return describe(err)
		}
		return printJSON(cmd, dto.NewRoundResponse(res))
	})
}

func runSeed(cmd *cobra.Command, f *cliFlags) error {
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		return seeds.RunAllSeeds(ctx, rt.rounds.Sessions, f.seedDir)
	})
}

func runPurgeLocks(cmd *cobra.Command) error {
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		if rt.storage.GormLocker == nil {
			return errors.New("purge-locks needs ROUND_LOCK_DRIVER=postgres; other drivers expire leases on their own")
		}
		n, err := rt.storage.GormLocker.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d expired round locks removed\n", n)
		return err
	})
}
