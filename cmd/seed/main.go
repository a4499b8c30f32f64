package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/appointment"
	"github.com/hackgods/careslot/internal/config"
	"github.com/hackgods/careslot/internal/db"
	"github.com/hackgods/careslot/internal/logging"
	"github.com/hackgods/careslot/internal/schedule"
)

type seedConfig struct {
	Providers    int
	Appointments int // pending requests per provider over the next week
}

type shift struct {
	start, end string
	lunch      [2]string
}

var shifts = []shift{
	{start: "08:00", end: "16:00", lunch: [2]string{"12:00", "13:00"}},
	{start: "09:00", end: "17:00", lunch: [2]string{"12:30", "13:30"}},
	{start: "10:00", end: "18:00", lunch: [2]string{"13:00", "14:00"}},
}

var slotLengths = []int{15, 20, 30, 30, 45}

var visitReasons = []string{
	"Annual check-up",
	"Follow-up on lab results",
	"Persistent headache",
	"Skin rash",
	"Blood pressure review",
	"Medication refill",
	"Back pain",
	"Vaccination",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	sc := seedConfig{
		Providers:    envInt("SEED_PROVIDERS", 20),
		Appointments: envInt("SEED_APPOINTMENTS", 10),
	}
	logger.Info("seed starting", zap.Int("providers", sc.Providers), zap.Int("appointments_per_provider", sc.Appointments))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolConfig{})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	schedules := schedule.NewManager(schedule.NewPgStore(pool), cfg.DefaultSlotMinutes, logger.Named("schedule"))
	svc := appointment.NewService(appointment.NewPgRepository(pool), schedules, appointment.Options{
		Logger:   logger.Named("appointment"),
		Location: cfg.Location,
	})

	for i := 0; i < sc.Providers; i++ {
		providerID := uuid.New()
		if err := seedProvider(ctx, schedules, providerID); err != nil {
			logger.Fatal("seed provider schedule", zap.String("provider_id", providerID.String()), zap.Error(err))
		}
		booked := seedAppointments(ctx, svc, providerID, sc.Appointments, cfg.Location)
		logger.Info("provider seeded",
			zap.String("provider_id", providerID.String()),
			zap.String("name", "Dr. "+gofakeit.LastName()),
			zap.Int("appointments", booked),
		)
	}

	logger.Info("seed complete")
}

// seedProvider gives the provider a weekday shift with a lunch break.
func seedProvider(ctx context.Context, schedules *schedule.Manager, providerID uuid.UUID) error {
	s := shifts[gofakeit.Number(0, len(shifts)-1)]
	minutes := slotLengths[gofakeit.Number(0, len(slotLengths)-1)]

	start, err := schedule.ParseClock(s.start)
	if err != nil {
		return err
	}
	end, err := schedule.ParseClock(s.end)
	if err != nil {
		return err
	}
	lunchStart, err := schedule.ParseClock(s.lunch[0])
	if err != nil {
		return err
	}
	lunchEnd, err := schedule.ParseClock(s.lunch[1])
	if err != nil {
		return err
	}

	for day := time.Monday; day <= time.Friday; day++ {
		if _, err := schedules.AddWindow(ctx, schedule.Window{
			ProviderID:  providerID,
			DayOfWeek:   day,
			Start:       start,
			End:         end,
			SlotMinutes: minutes,
		}); err != nil {
			return fmt.Errorf("add %s window: %w", day, err)
		}
		if _, err := schedules.AddBreak(ctx, schedule.Break{
			ProviderID: providerID,
			DayOfWeek:  &day,
			Start:      lunchStart,
			End:        lunchEnd,
			Label:      "Lunch",
		}); err != nil {
			return fmt.Errorf("add %s lunch: %w", day, err)
		}
	}
	return nil
}

// seedAppointments books random open slots over the next seven days.
func seedAppointments(ctx context.Context, svc *appointment.Service, providerID uuid.UUID, n int, loc *time.Location) int {
	today := schedule.DateOf(time.Now().In(loc))
	types := []appointment.Type{
		appointment.TypeConsultation,
		appointment.TypeFollowUp,
		appointment.TypeCheckUp,
	}

	booked := 0
	for attempt := 0; booked < n && attempt < n*4; attempt++ {
		date := today.AddDays(gofakeit.Number(1, 7))
		slots, err := svc.ListAvailableSlots(ctx, providerID, date)
		if err != nil || len(slots) == 0 {
			continue
		}
		slot := slots[gofakeit.Number(0, len(slots)-1)]

		notes := gofakeit.Sentence(8)
		_, err = svc.BookAppointment(ctx, appointment.BookingRequest{
			PatientID:  uuid.New(),
			ProviderID: providerID,
			Date:       date,
			Time:       slot.Start,
			Type:       types[gofakeit.Number(0, len(types)-1)],
			Reason:     visitReasons[gofakeit.Number(0, len(visitReasons)-1)],
			Notes:      &notes,
		})
		if errors.Is(err, appointment.ErrSlotConflict) {
			continue
		}
		if err == nil {
			booked++
		}
	}
	return booked
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
