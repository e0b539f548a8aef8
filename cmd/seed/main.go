package main

import (
	"context"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/db"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

var specialities = []string{
	"Fades",
	"Beard Styling",
	"Classic Cuts",
	"Hot Towel Shave",
	"Kids Cuts",
	"Hair Colouring",
}

var catalog = []string{
	"Haircut",
	"Beard Trim",
	"Shave",
	"Hair Wash",
	"Facial",
	"Head Massage",
	"Hair Colour",
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Error("migrate", "err", err)
		os.Exit(1)
	}

	repo := booking.NewPgRepository(pool)
	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	if err := seedBarbers(ctx, repo, faker, logger, envInt("SEED_BARBERS", 5)); err != nil {
		logger.Error("seed barbers", "err", err)
		os.Exit(1)
	}
	if err := seedServices(ctx, repo, faker, logger); err != nil {
		logger.Error("seed services", "err", err)
		os.Exit(1)
	}

	logger.Info("seed complete")
}

func seedBarbers(ctx context.Context, repo *booking.PgRepository, faker *gofakeit.Faker, logger *slog.Logger, count int) error {
	logger.Info("seeding barbers", "count", count)

	seen := make(map[string]bool, count)
	for len(seen) < count {
		name := faker.FirstName()
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		// most barbers open at 10:00; a few start an hour later
		start := 10 + faker.Number(0, 1)
		end := start + 8 + faker.Number(0, 4)
		b := booking.Barber{
			Name:         name,
			WorkingHours: booking.Hours{Start: timegrid.Clock(start, 0), End: timegrid.Clock(end, 0)},
		}
		if faker.Bool() {
			breakStart := timegrid.Clock(faker.Number(13, 15), 0)
			b.BreakTime = &booking.Hours{Start: breakStart, End: breakStart.Add(30 * faker.Number(1, 2))}
		}
		speciality := specialities[faker.Number(0, len(specialities)-1)]
		b.Speciality = &speciality

		created, err := repo.CreateBarber(ctx, b)
		if err != nil {
			return err
		}
		logger.Info("barber created", "name", created.Name, "hours", created.WorkingHours.Start.String()+"-"+created.WorkingHours.End.String())
	}
	return nil
}

func seedServices(ctx context.Context, repo *booking.PgRepository, faker *gofakeit.Faker, logger *slog.Logger) error {
	logger.Info("seeding services", "count", len(catalog))

	for _, name := range catalog {
		price := math.Round(faker.Price(300, 3000)/50) * 50
		if _, err := repo.CreateService(ctx, booking.ShopService{Name: name, Price: price}); err != nil {
			return err
		}
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
