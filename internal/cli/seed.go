package cli

import (
	"fmt"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/config"
	"github.com/Josephvarghes/Edu-Stack/internal/infra/memory"
	"github.com/Josephvarghes/Edu-Stack/internal/infra/postgres"
	infraredis "github.com/Josephvarghes/Edu-Stack/internal/infra/redis"
	"github.com/Josephvarghes/Edu-Stack/internal/logger"
	"github.com/spf13/cobra"
)

// NewSeedCmd upserts quizzes from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz definitions from YAML into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Quiz.File
			}
			if file == "" {
				return fmt.Errorf("no quiz file given; use --file or quiz.file")
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			ctx := cmd.Context()

			quizzes, err := memory.LoadQuizFile(file)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			b, cleanup, err := connect(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			store := postgres.NewQuizLoader(b.pool)
			var cache *infraredis.QuizRepository
			if b.redis != nil {
				cache = infraredis.NewQuizRepository(b.redis, store, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
			}
			for _, quiz := range quizzes {
				if err := store.SaveQuiz(ctx, quiz); err != nil {
					return err
				}
				if cache != nil {
					if err := cache.Invalidate(ctx, quiz.ID); err != nil {
						log.Warn().Err(err).Str("quiz_id", quiz.ID).Msg("failed to invalidate cached quiz")
					}
				}
				log.Info().Str("quiz_id", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz seeded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML quiz file (defaults to quiz.file)")
	return cmd
}
