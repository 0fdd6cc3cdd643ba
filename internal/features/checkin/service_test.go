package checkin

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"serotonyl.ru/goats-farm/internal/api"
)

var msk = time.FixedZone("MSK", 3*60*60)

type fakeAPI struct {
	opts   api.CheckinOptions
	claims []string
}

func (f *fakeAPI) GetCheckinOptions(ctx context.Context) (api.Result[api.CheckinOptions], error) {
	return api.Result[api.CheckinOptions]{Value: f.opts}, nil
}

func (f *fakeAPI) ClaimCheckin(ctx context.Context, id string) (api.Result[api.ClaimReply], error) {
	f.claims = append(f.claims, id)
	return api.Result[api.ClaimReply]{Value: api.ClaimReply{Status: "success"}}, nil
}

func testLogger() *log.Entry {
	logger, _ := test.NewNullLogger()
	return log.NewEntry(logger)
}

func days() []api.CheckinDay {
	return []api.CheckinDay{
		{ID: "d1", Reward: 100, Status: true},
		{ID: "d2", Reward: 200, Status: false},
		{ID: "d3", Reward: 300, Status: false},
	}
}

func TestRunClaimsFirstUnclaimedOnce(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, msk)
	yesterday := time.Date(2024, 5, 1, 9, 0, 0, 0, msk).UnixMilli()

	fake := &fakeAPI{opts: api.CheckinOptions{Result: days(), LastCheckinTime: &yesterday}}
	s := NewService(fake, msk, func() time.Time { return now })

	day, err := s.Run(context.Background(), testLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if day == nil || day.ID != "d2" {
		t.Fatalf("claimed = %+v", day)
	}
	if len(fake.claims) != 1 || fake.claims[0] != "d2" {
		t.Fatalf("claims = %v", fake.claims)
	}
}

func TestRunSkipsWhenClaimedToday(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, msk)
	today := time.Date(2024, 5, 2, 0, 5, 0, 0, msk).Unix()

	fake := &fakeAPI{opts: api.CheckinOptions{Result: days(), LastCheckinTime: &today}}
	day, err := NewService(fake, msk, func() time.Time { return now }).Run(context.Background(), testLogger())
	if err != nil || day != nil {
		t.Fatalf("day=%v err=%v", day, err)
	}
	if len(fake.claims) != 0 {
		t.Fatalf("claims = %v", fake.claims)
	}
}

func TestNextClaimable(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, msk)

	if _, ok := NextClaimable(api.CheckinOptions{Result: []api.CheckinDay{{ID: "d1", Status: true}}}, now, msk); ok {
		t.Error("all days claimed: nothing to claim")
	}
	var never int64
	day, ok := NextClaimable(api.CheckinOptions{Result: days(), LastCheckinTime: &never}, now, msk)
	if !ok || day.ID != "d2" {
		t.Errorf("first check-in: got %+v %v", day, ok)
	}
}

func TestRunSkipsWithoutLastCheckinTime(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, msk)

	fake := &fakeAPI{opts: api.CheckinOptions{Result: days()}}
	day, err := NewService(fake, msk, func() time.Time { return now }).Run(context.Background(), testLogger())
	if err != nil || day != nil {
		t.Fatalf("day=%v err=%v", day, err)
	}
	if len(fake.claims) != 0 {
		t.Fatalf("claims = %v, want none when lastCheckinTime is absent", fake.claims)
	}
}
