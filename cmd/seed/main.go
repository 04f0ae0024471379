package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/clinic-scheduling/internal/db"
	"github.com/careloop/clinic-scheduling/internal/scheduling"
	"github.com/careloop/clinic-scheduling/internal/slotgrid"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, doctorIDs, patientIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedAppointments books a handful of upcoming slots per doctor so the
// availability view has something to show. Conflicting picks are simply
// skipped; the unique index keeps the data consistent.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, doctorIDs, patientIDs []uuid.UUID) error {
	if len(doctorIDs) == 0 || len(patientIDs) == 0 {
		return nil
	}
	log.Println("seeding appointments")

	grid := slotgrid.All()
	statuses := []scheduling.Status{
		scheduling.StatusRequested,
		scheduling.StatusConfirmed,
		scheduling.StatusConfirmed,
		scheduling.StatusCancelled,
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	inserted := 0

	for _, doctorID := range doctorIDs {
		for i := 0; i < 8; i++ {
			patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
			date := today.AddDate(0, 0, gofakeit.Number(1, 14))
			slot := grid[gofakeit.Number(0, len(grid)-1)]
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			tag, err := pool.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, doctor_id, date, slot, duration_minutes, status, reason, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 30, $6, $7, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), patientID, doctorID, date, slot.String(), string(status), gofakeit.Sentence(8))
			if err != nil {
				return err
			}
			inserted += int(tag.RowsAffected())
		}
	}

	log.Printf("appointments seeded: %d", inserted)
	return nil
}
