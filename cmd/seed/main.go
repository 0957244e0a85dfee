package main

import (
	"fmt"
	"log"
	"time"

	"github.com/vedants521/CancelFillMD/internal/shared/config"
	"github.com/vedants521/CancelFillMD/internal/shared/database"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/waitlist"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting CancelFillMD Database Seeder...")

	gofakeit.Seed(42)

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"notification_records",
		"booking_tokens",
		"waitlist_entries",
		"slots",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	if err := s.SeedWaitlist(); err != nil {
		return fmt.Errorf("failed to seed waitlist: %w", err)
	}

	if err := s.SeedSlots(); err != nil {
		return fmt.Errorf("failed to seed slots: %w", err)
	}

	return nil
}

// SeedWaitlist creates waitlisted patients across every specialty, with
// varied date windows and time preferences.
func (s *Seeder) SeedWaitlist() error {
	fmt.Println("  Seeding waitlist entries...")

	bands := [][]string{
		{"any"},
		{"morning"},
		{"afternoon"},
		{"evening"},
		{"morning", "afternoon"},
		{"afternoon", "evening"},
		{}, // no preference, accepts every band
	}

	entries := make([]waitlist.WaitlistEntry, 0, 75)
	for i := 0; i < 75; i++ {
		specialty := config.Specialties[i%len(config.Specialties)]

		// Each patient watches a contiguous window of upcoming days
		startOffset := gofakeit.Number(0, 6)
		windowDays := gofakeit.Number(3, 10)
		dates := make(waitlist.StringList, 0, windowDays)
		for d := 0; d < windowDays; d++ {
			day := time.Now().AddDate(0, 0, startOffset+d)
			dates = append(dates, day.Format("2006-01-02"))
		}

		entries = append(entries, waitlist.WaitlistEntry{
			ID:              uuid.New(),
			Name:            gofakeit.Name(),
			Phone:           fmt.Sprintf("+1%d", gofakeit.Number(2000000000, 9999999999)),
			Email:           gofakeit.Email(),
			Specialty:       specialty.Name,
			PreferredDates:  dates,
			TimePreferences: waitlist.StringList(bands[i%len(bands)]),
			Active:          true,
		})
	}

	if err := s.db.PostgreSQL.CreateInBatches(entries, 25).Error; err != nil {
		return err
	}

	fmt.Printf("  Created %d waitlist entries\n", len(entries))
	return nil
}

// SeedSlots builds two weeks of provider schedules. Most slots start out
// booked (SCHEDULED) so cancellations have something to free up.
func (s *Seeder) SeedSlots() error {
	fmt.Println("  Seeding appointment slots...")

	providersBySpecialty := make(map[string][]string)
	for _, sp := range config.Specialties {
		count := gofakeit.Number(2, 3)
		names := make([]string, 0, count)
		for i := 0; i < count; i++ {
			names = append(names, "Dr. "+gofakeit.LastName())
		}
		providersBySpecialty[sp.Name] = names
	}

	startTimes := []string{"08:00", "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00", "17:30"}

	allSlots := make([]slots.Slot, 0, 512)
	for day := 0; day < 14; day++ {
		date := time.Now().AddDate(0, 0, day)
		// Clinic closed on Sundays
		if date.Weekday() == time.Sunday {
			continue
		}

		for _, sp := range config.Specialties {
			for _, provider := range providersBySpecialty[sp.Name] {
				for _, start := range startTimes {
					// Providers do not work every block every day
					if gofakeit.Number(1, 100) > 60 {
						continue
					}

					slot := slots.Slot{
						ID:              uuid.New(),
						Date:            date.Format("2006-01-02"),
						StartTime:       start,
						DurationMinutes: sp.DurationMinutes,
						Specialty:       sp.Name,
						Provider:        provider,
						Status:          slots.SlotStatusScheduled,
						Wave:            0,
					}

					// Roughly one slot in ten is still open inventory
					if gofakeit.Number(1, 10) == 1 {
						slot.Status = slots.SlotStatusScheduled
					} else {
						slot.PatientName = gofakeit.Name()
						slot.PatientPhone = fmt.Sprintf("+1%d", gofakeit.Number(2000000000, 9999999999))
						slot.PatientEmail = gofakeit.Email()
					}

					allSlots = append(allSlots, slot)
				}
			}
		}
	}

	if err := s.db.PostgreSQL.CreateInBatches(allSlots, 100).Error; err != nil {
		return err
	}

	fmt.Printf("  Created %d slots across %d specialties\n", len(allSlots), len(config.Specialties))
	return nil
}
