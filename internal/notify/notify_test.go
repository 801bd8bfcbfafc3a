package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/api"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func emp(name, dob, joined string) api.Employee {
	return api.Employee{ID: name, Name: name, DOB: dob, JoiningDate: joined, Active: true}
}

func TestCelebrations(t *testing.T) {
	employees := []api.Employee{
		emp("Asha", "1998-10-17", "2026-10-17"),
		emp("Ravi", "1990-02-14", "2019-10-17"),
		emp("Kiran", "1988-10-18", "2020-01-01"),
		emp("Bad", "17/10/1990", ""),
		{ID: "gone", Name: "Gone", DOB: "1980-10-17", Active: false},
	}

	events := Celebrations(day("2026-10-17").Add(15*time.Hour), employees)
	require.Len(t, events, 2)

	assert.Equal(t, "Asha", events[0].Employee.Name)
	assert.Equal(t, KindBirthday, events[0].Kind)
	assert.Equal(t, 28, events[0].Years)

	assert.Equal(t, "Ravi", events[1].Employee.Name)
	assert.Equal(t, KindAnniversary, events[1].Kind)
	assert.Equal(t, 7, events[1].Years)
}

func TestCelebrations_LeapDayBirthday(t *testing.T) {
	employees := []api.Employee{emp("Leap", "2000-02-29", "")}

	tests := []struct {
		today string
		want  int
	}{
		{today: "2027-02-28", want: 1},
		{today: "2027-03-01", want: 0},
		{today: "2028-02-28", want: 0},
		{today: "2028-02-29", want: 1},
		{today: "2100-02-28", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.today, func(t *testing.T) {
			assert.Len(t, Celebrations(day(tt.today), employees), tt.want)
		})
	}
}

func TestCelebrations_NoAnniversaryInFirstYear(t *testing.T) {
	events := Celebrations(day("2026-09-15"), []api.Employee{emp("Kiran", "", "2026-09-15")})
	assert.Empty(t, events)

	events = Celebrations(day("2027-09-15"), []api.Employee{emp("Kiran", "", "2026-09-15")})
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Years)
}

func TestUpcoming_OrdersByDate(t *testing.T) {
	employees := []api.Employee{
		emp("Zed", "1990-10-19", ""),
		emp("Amy", "1991-10-18", "2020-10-18"),
		emp("Bob", "1992-10-18", ""),
	}

	events := Upcoming(day("2026-10-17"), 7, employees)
	require.Len(t, events, 4)
	assert.Equal(t, []string{"Amy", "Bob", "Amy", "Zed"}, []string{
		events[0].Employee.Name, events[1].Employee.Name, events[2].Employee.Name, events[3].Employee.Name,
	})
	assert.Equal(t, KindAnniversary, events[2].Kind)
	assert.True(t, events[3].Date.Equal(day("2026-10-19")))
}

func TestNextFire(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before hour", time.Date(2026, 10, 17, 7, 30, 0, 0, loc), time.Date(2026, 10, 17, 9, 0, 0, 0, loc)},
		{"exactly at hour", time.Date(2026, 10, 17, 9, 0, 0, 0, loc), time.Date(2026, 10, 17, 9, 0, 0, 0, loc)},
		{"after hour", time.Date(2026, 10, 17, 9, 0, 1, 0, loc), time.Date(2026, 10, 18, 9, 0, 0, 0, loc)},
		{"month end", time.Date(2026, 10, 31, 23, 0, 0, 0, loc), time.Date(2026, 11, 1, 9, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextFire(tt.now, 9))
		})
	}
}

func TestDigest(t *testing.T) {
	assert.Empty(t, Digest(nil))

	a := emp("Asha", "", "")
	a.Department = "Engineering"
	got := Digest([]Event{
		{Employee: a, Kind: KindBirthday, Years: 28},
		{Employee: emp("Ravi", "", ""), Kind: KindAnniversary, Years: 1},
		{Employee: emp("Meera", "", ""), Kind: KindAnniversary, Years: 11},
	})
	assert.Equal(t, "🎂 Asha has a birthday (Engineering)\n🎉 Ravi completes 1 year\n🎉 Meera completes 11 years", got)
}

func TestScheduler_FiresOncePerDay(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	fetches := 0
	var delivered []string

	s := NewScheduler(9, func(ctx context.Context) ([]api.Employee, error) {
		fetches++
		return []api.Employee{emp("Asha", "1998-10-17", "")}, nil
	}, func(d string) { delivered = append(delivered, d) })
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	fired, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, fired, "before the hour")
	assert.Zero(t, fetches)

	now = now.Add(90 * time.Minute)
	fired, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	require.Len(t, delivered, 1)
	assert.Contains(t, delivered[0], "Asha")

	now = now.Add(5 * time.Hour)
	fired, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, fired, "same day")
	assert.Equal(t, 1, fetches)

	now = now.Add(24 * time.Hour)
	fired, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Len(t, delivered, 1, "no celebrations the next day")
}

func TestScheduler_FetchErrorRetries(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	fail := true
	s := NewScheduler(9, func(ctx context.Context) ([]api.Employee, error) {
		if fail {
			return nil, errors.New("offline")
		}
		return nil, nil
	}, func(string) {})
	s.SetClock(func() time.Time { return now })

	fired, err := s.Tick(context.Background())
	assert.Error(t, err)
	assert.False(t, fired)

	fail = false
	fired, err = s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestNewScheduler_ClampsHour(t *testing.T) {
	assert.Equal(t, 23, NewScheduler(30, nil, nil).Hour())
	assert.Equal(t, 0, NewScheduler(-2, nil, nil).Hour())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewScheduler(23, func(ctx context.Context) ([]api.Employee, error) { return nil, nil }, func(string) {})
	s.SetClock(func() time.Time { return time.Date(2026, 10, 17, 1, 0, 0, 0, time.UTC) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScheduler_WaitAfterFailure(t *testing.T) {
	s := NewScheduler(9, nil, nil)

	tests := []struct {
		name   string
		now    time.Time
		failed bool
		want   time.Duration
	}{
		{"success waits for tomorrow", time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), false, 23 * time.Hour},
		{"failure retries soon", time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), true, DefaultRetryDelay},
		{"fire time sooner than retry", time.Date(2026, 10, 17, 8, 59, 30, 0, time.UTC), true, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.wait(tt.now, tt.failed))
		})
	}
}

func TestScheduler_RunRetriesFailedFetchSameDay(t *testing.T) {
	fetches := 0
	delivered := make(chan string, 1)
	s := NewScheduler(9, func(ctx context.Context) ([]api.Employee, error) {
		fetches++
		if fetches == 1 {
			return nil, errors.New("offline")
		}
		return []api.Employee{emp("Asha", "1998-10-17", "")}, nil
	}, func(d string) { delivered <- d })
	s.SetClock(func() time.Time { return time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC) })
	s.SetRetryDelay(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case d := <-delivered:
		assert.Contains(t, d, "Asha")
	case <-time.After(2 * time.Second):
		t.Fatal("digest not delivered after retry")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
