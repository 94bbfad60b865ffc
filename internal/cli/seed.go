package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"chapter-quiz-service/internal/config"
	"chapter-quiz-service/internal/domain"
	pgstorage "chapter-quiz-service/internal/infra/postgres"
	"chapter-quiz-service/internal/quizdata"
)

// NewSeedCmd loads the sample dataset into Postgres. One-shot: chapters
// already present by name are skipped.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with the sample chapter and questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg)
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := pgstorage.NewStorage(pool)

	dataset := quizdata.Default()
	if cfg.Content.Dataset != "" {
		dataset, err = quizdata.LoadFile(cfg.Content.Dataset)
		if err != nil {
			return err
		}
	}

	existing, err := store.ListChapters(ctx)
	if err != nil {
		return err
	}
	seeded := make(map[string]bool, len(existing))
	for _, chapter := range existing {
		seeded[chapter.Name] = true
	}

	for _, chapter := range dataset.Chapters {
		if seeded[chapter.Name] {
			log.Printf("chapter %q already present, skipping", chapter.Name)
			continue
		}
		created, err := store.CreateChapter(ctx, chapter.Name, chapter.Description)
		if err != nil {
			return fmt.Errorf("seed chapter %q: %w", chapter.Name, err)
		}

		questions := make([]domain.NewQuestion, 0, len(dataset.Questions[chapter.ID]))
		for _, question := range dataset.Questions[chapter.ID] {
			questions = append(questions, domain.NewQuestion{
				Text:          question.Text,
				Options:       question.Options,
				CorrectAnswer: question.CorrectAnswer,
				Explanation:   question.Explanation,
			})
		}
		if len(questions) == 0 {
			continue
		}
		if _, err := store.AddQuestions(ctx, created.ID, questions); err != nil {
			return fmt.Errorf("seed questions for %q: %w", chapter.Name, err)
		}
		log.Printf("seeded chapter %q with %d questions", chapter.Name, len(questions))
	}
	return nil
}
