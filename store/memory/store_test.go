package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/incentive"
	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	"github.com/xraph/incentive/types"
)

func TestAccountRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetAccount(ctx, "u1"); !errors.Is(err, incentive.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	a := account.New("u1")
	a.Level = 3
	a.Debt = types.Point(2)
	if err := s.PutAccount(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != 3 || got.Debt != types.Point(2) {
		t.Fatalf("got = %+v", got)
	}

	// The store copies on write; mutating the original must not leak.
	a.Level = 5
	got, _ = s.GetAccount(ctx, "u1")
	if got.Level != 3 {
		t.Fatalf("level = %d, want snapshot 3", got.Level)
	}
}

func TestListAccountsFilterAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, u := range []struct {
		user  string
		level int
	}{
		{"alice", 1}, {"bob", 3}, {"carol", 2}, {"dave", 4},
	} {
		a := account.New(u.user)
		a.Level = u.level
		if err := s.PutAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListAccounts(ctx, account.ListOpts{MinLevel: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Stable user ordering.
	if got[0].User != "bob" || got[1].User != "carol" || got[2].User != "dave" {
		t.Fatalf("order = %s, %s, %s", got[0].User, got[1].User, got[2].User)
	}

	got, err = s.ListAccounts(ctx, account.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].User != "bob" {
		t.Fatalf("page = %+v", got)
	}
}

func TestOrderLocks(t *testing.T) {
	s := New()
	ctx := context.Background()

	lock := accrual.NewOrderLock("ord-1", "u1", types.Point(1), time.Now().Add(time.Hour))
	if err := s.CreateOrderLock(ctx, lock); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateOrderLock(ctx, lock); !errors.Is(err, incentive.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetOrderLock(ctx, "ord-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Borrower != "u1" || got.Points != types.Point(1) {
		t.Fatalf("got = %+v", got)
	}

	locks, err := s.ListOrderLocks(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(locks) != 1 {
		t.Fatalf("len = %d, want 1", len(locks))
	}

	if err := s.DeleteOrderLock(ctx, "ord-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteOrderLock(ctx, "ord-1"); !errors.Is(err, incentive.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConsumptionListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	boost := consumption.NewRecord("u1", catalog.ServiceCreditBoost, 1, consumption.KindPurchase, types.Point(1), now.Add(time.Hour))
	fast := consumption.NewRecord("u1", catalog.ServiceFastTrack, 2, consumption.KindUpgrade, types.Point(2), now.Add(-time.Hour))
	for _, r := range []*consumption.Record{boost, fast} {
		if err := s.AppendConsumption(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListConsumptions(ctx, "u1", consumption.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	svc := catalog.ServiceFastTrack
	filtered, err := s.ListConsumptions(ctx, "u1", consumption.ListOpts{Service: &svc})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].Kind != consumption.KindUpgrade {
		t.Fatalf("filtered = %+v", filtered)
	}

	// Only the unexpired record is active.
	active, err := s.ActiveConsumptions(ctx, "u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Service != catalog.ServiceCreditBoost {
		t.Fatalf("active = %+v", active)
	}
}

func TestCooldownStamps(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetCooldownStamp(ctx, "u1", catalog.ServiceCreditBoost); !errors.Is(err, incentive.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	at := time.Now().Truncate(time.Second)
	if err := s.SetCooldownStamp(ctx, "u1", catalog.ServiceCreditBoost, at); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCooldownStamp(ctx, "u1", catalog.ServiceCreditBoost)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at) {
		t.Fatalf("got = %v, want %v", got, at)
	}

	// Stamps are keyed per service type.
	if _, err := s.GetCooldownStamp(ctx, "u1", catalog.ServiceFastTrack); !errors.Is(err, incentive.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for other service", err)
	}
}
