package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
	pgstorage "chapter-quiz-service/internal/infra/postgres"
	pgmigrations "chapter-quiz-service/internal/infra/postgres/migrations"
	redisinfra "chapter-quiz-service/internal/infra/redis"
)

func TestQuizFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstorage.NewStorage(pool)
	questions := redisinfra.NewQuestionCache(redisClient, store, 5*time.Minute)
	service := app.NewQuizService(store, questions)

	chapter, err := service.CreateChapter(ctx, "Chapter 1: GPU Training Fundamentals", "Sample chapter")
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if chapter.OrderIndex != 1 {
		t.Fatalf("expected first chapter at order_index 1, got %d", chapter.OrderIndex)
	}

	created, err := service.AddQuestions(ctx, chapter.ID, []domain.NewQuestion{
		{Text: "Pick b", Options: []string{"a", "b"}, CorrectAnswer: 1},
		{Text: "Pick a", Options: []string{"a", "b"}, CorrectAnswer: 0, Explanation: "a is right"},
	})
	if err != nil {
		t.Fatalf("add questions: %v", err)
	}
	if len(created) != 2 || created[0].OrderIndex != 1 || created[1].OrderIndex != 2 {
		t.Fatalf("expected sequential order indices, got %+v", created)
	}

	alice, err := service.Register(ctx, "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	again, err := service.Register(ctx, "alice")
	if err != nil || again.ID != alice.ID {
		t.Fatalf("expected idempotent register, got %+v err=%v", again, err)
	}

	result, err := service.SubmitQuiz(ctx, alice.ID, chapter.ID, map[string]int{
		created[0].ID: 1,
		created[1].ID: 1,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Percentage != 50 {
		t.Fatalf("unexpected result: %+v", result)
	}

	user, err := service.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.TotalScore != 1 || user.QuizzesCompleted != 1 {
		t.Fatalf("unexpected aggregates: %+v", user)
	}

	global, err := service.GlobalLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("global leaderboard: %v", err)
	}
	if len(global) != 1 || global[0].Username != "alice" || global[0].TotalScore != 1 {
		t.Fatalf("unexpected global leaderboard: %+v", global)
	}

	scoped, err := service.ChapterLeaderboard(ctx, chapter.ID, 10)
	if err != nil {
		t.Fatalf("chapter leaderboard: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Username != "alice" {
		t.Fatalf("unexpected chapter leaderboard: %+v", scoped)
	}

	// unknown user must not reach the attempt insert
	if _, err := service.SubmitQuiz(ctx, "11111111-1111-1111-1111-111111111111", chapter.ID, nil); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
