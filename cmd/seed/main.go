package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/seed"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

func main() {
	doctors := flag.Int("doctors", 100, "number of doctors")
	patients := flag.Int("patients", 9000, "number of patients")
	days := flag.Int("days", 5, "days of availability starting today")
	tokens := flag.Int("tokens", 3, "print this many doctor and patient tokens")
	flag.Parse()

	zlog, err := logger.New(config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		zlog.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{})
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}

	var dates []timeslot.Date
	for i := 0; i < *days; i++ {
		dates = append(dates, timeslot.DateOf(time.Now().AddDate(0, 0, i)))
	}
	plan := seed.Generate(seed.Options{Doctors: *doctors, Patients: *patients, Days: dates})

	if err := seedDoctors(ctx, pool, plan, zlog); err != nil {
		zlog.Fatal("seed doctors", zap.Error(err))
	}
	if err := seedPatients(ctx, pool, plan, zlog); err != nil {
		zlog.Fatal("seed patients", zap.Error(err))
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		printTokens(identity.NewJWTResolver(secret, os.Getenv("JWT_ISSUER")), plan, *tokens, zlog)
	}

	zlog.Info("seed complete")
}

// seedDoctors writes doctors with their slots in one transaction.
func seedDoctors(ctx context.Context, pool *pgxpool.Pool, plan seed.Plan, zlog *zap.Logger) error {
	zlog.Info("seeding doctors", zap.Int("doctors", len(plan.Doctors)), zap.Int("slots", len(plan.Slots)))

	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, d := range plan.Doctors {
			_, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, name, specialty, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, d.ID, d.Name, d.Specialty)
			if err != nil {
				return err
			}
		}

		slots := availability.NewPgRepository(tx)
		for _, s := range plan.Slots {
			if _, err := slots.Create(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, plan seed.Plan, zlog *zap.Logger) error {
	zlog.Info("seeding patients", zap.Int("count", len(plan.Patients)))

	const batchSize = 500

	for offset := 0; offset < len(plan.Patients); offset += batchSize {
		end := min(offset+batchSize, len(plan.Patients))

		batch := &pgx.Batch{}
		for _, p := range plan.Patients[offset:end] {
			batch.Queue(`
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, p.ID, p.Name, p.Email)
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		zlog.Info("patients batch inserted", zap.Int("from", offset), zap.Int("to", end))
	}

	return nil
}

func printTokens(resolver *identity.JWTResolver, plan seed.Plan, n int, zlog *zap.Logger) {
	issue := func(c identity.Caller, name string) {
		tok, err := resolver.Issue(c, 7*24*time.Hour)
		if err != nil {
			zlog.Warn("issue token", zap.Error(err))
			return
		}
		zlog.Info("token",
			zap.String("role", string(c.Role)),
			zap.String("name", name),
			zap.String("id", c.OwnerID.String()),
			zap.String("token", tok),
		)
	}

	for _, d := range plan.Doctors[:min(n, len(plan.Doctors))] {
		issue(identity.Caller{Role: identity.RoleDoctor, OwnerID: d.ID}, d.Name)
	}
	for _, p := range plan.Patients[:min(n, len(plan.Patients))] {
		issue(identity.Caller{Role: identity.RolePatient, OwnerID: p.ID}, p.Name)
	}
	issue(identity.Caller{Role: identity.RoleAdmin}, "admin")
}
