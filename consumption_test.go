package incentive_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/incentive"
	"github.com/xraph/incentive/balance"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	"github.com/xraph/incentive/store/memory"
	"github.com/xraph/incentive/types"
)

// testCatalog builds a two-service catalog: credit_boost with a 24h
// cooldown and three priced levels (level 4 is listed but inactive), and
// fast_track with no cooldown.
func testCatalog() *catalog.Static {
	boost := catalog.NewStaticProvider(24 * time.Hour)
	for level, price := range map[int]types.Points{
		1: types.Point(1),
		2: types.Point(3),
		3: types.Point(5),
	} {
		boost.SetLevel(level, catalog.Config{
			Price:    price,
			Duration: 30 * 24 * time.Hour,
			Active:   true,
			Level:    level,
		})
	}
	boost.SetLevel(4, catalog.Config{
		Price:    types.Point(8),
		Duration: 30 * 24 * time.Hour,
		Active:   false,
		Level:    4,
	})

	fast := catalog.NewStaticProvider(0).
		SetLevel(1, catalog.Config{
			Price:    types.MicroPoints(500_000),
			Duration: 7 * 24 * time.Hour,
			Active:   true,
			Level:    1,
		})

	return catalog.NewStatic().
		Add(catalog.ServiceCreditBoost, boost).
		Add(catalog.ServiceFastTrack, fast)
}

func newConsumptionEngine(t *testing.T, opts ...incentive.Option) (*incentive.Engine, *balance.Memory, *testClock) {
	t.Helper()
	clock := newTestClock()
	bal := balance.NewMemory()
	base := []incentive.Option{
		incentive.WithBalance(bal),
		incentive.WithCatalog(testCatalog()),
		incentive.WithClock(clock.Now),
	}
	eng := incentive.New(memory.New(), append(base, opts...)...)
	return eng, bal, clock
}

func fund(t *testing.T, bal *balance.Memory, user string, p types.Points) {
	t.Helper()
	if err := bal.Mint(context.Background(), user, p); err != nil {
		t.Fatal(err)
	}
}

func TestConsumeService(t *testing.T) {
	eng, bal, _ := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(10))

	rec, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{
		User:    "u1",
		Service: catalog.ServiceCreditBoost,
		Level:   2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Points != types.Point(3) {
		t.Fatalf("price = %s, want 3 pts", rec.Points)
	}
	if rec.Kind != consumption.KindPurchase {
		t.Fatalf("kind = %s, want purchase", rec.Kind)
	}
	if held, _ := bal.BalanceOf(ctx, "u1"); held != types.Point(7) {
		t.Fatalf("balance = %s, want 7 pts", held)
	}

	sum, err := eng.Privileges(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if g := sum.Grant(catalog.ServiceCreditBoost); !g.Active || g.Level != 2 {
		t.Fatalf("grant = %+v, want active level 2", g)
	}
	if packed, _ := eng.PackedPrivileges(ctx, "u1"); packed == 0 {
		t.Fatal("packed privileges = 0, want non-zero")
	}

	history, err := eng.History(ctx, "u1", consumption.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1", len(history))
	}
}

func TestConsumeInsufficientBalance(t *testing.T) {
	eng, bal, _ := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.MicroPoints(900_000)) // 0.9 pts, level 1 costs 1

	_, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{
		User:    "u1",
		Service: catalog.ServiceCreditBoost,
		Level:   1,
	})
	if !errors.Is(err, incentive.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// The failed purchase leaves no trace.
	if held, _ := bal.BalanceOf(ctx, "u1"); held != types.MicroPoints(900_000) {
		t.Fatalf("balance = %s, want unchanged 0.9 pts", held)
	}
	if history, _ := eng.History(ctx, "u1", consumption.ListOpts{}); len(history) != 0 {
		t.Fatalf("history len = %d, want 0", len(history))
	}
}

func TestConsumeValidation(t *testing.T) {
	eng, bal, _ := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(100))

	tests := []struct {
		name string
		req  incentive.ConsumeRequest
		want error
	}{
		{"empty user", incentive.ConsumeRequest{Service: catalog.ServiceCreditBoost, Level: 1}, incentive.ErrInvalidInput},
		{"service out of range", incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceType(99), Level: 1}, incentive.ErrServiceNotFound},
		{"service not in catalog", incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceAdvisory, Level: 1}, incentive.ErrServiceNotFound},
		{"level zero", incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 0}, incentive.ErrInvalidLevel},
		{"level above max", incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 6}, incentive.ErrInvalidLevel},
		{"inactive level", incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 4}, incentive.ErrServiceInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eng.ConsumeService(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConsumeCooldown(t *testing.T) {
	eng, bal, clock := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(100))

	req := incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1}
	if _, err := eng.ConsumeService(ctx, req); err != nil {
		t.Fatal(err)
	}

	// Inside the window: blocked, regardless of level.
	clock.Advance(time.Hour)
	req.Level = 3
	if _, err := eng.ConsumeService(ctx, req); !errors.Is(err, incentive.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}

	// A different user is unaffected.
	fund(t, bal, "u2", types.Point(100))
	if _, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{User: "u2", Service: catalog.ServiceCreditBoost, Level: 1}); err != nil {
		t.Fatal(err)
	}

	// Past the window: allowed again.
	clock.Advance(24 * time.Hour)
	if _, err := eng.ConsumeService(ctx, req); err != nil {
		t.Fatal(err)
	}
}

func TestUpgradeService(t *testing.T) {
	eng, bal, clock := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(10))

	req := incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1}
	if _, err := eng.ConsumeService(ctx, req); err != nil {
		t.Fatal(err)
	}
	clock.Advance(25 * time.Hour)

	// Upgrade price is the target level's cost scaled by the upgrade
	// multiplier: 3 * 0.8 = 2.4 points.
	rec, err := eng.UpgradeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 2})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Kind != consumption.KindUpgrade {
		t.Fatalf("kind = %s, want upgrade", rec.Kind)
	}
	if rec.Points != types.MicroPoints(2_400_000) {
		t.Fatalf("upgrade price = %s, want 2.4 pts", rec.Points)
	}
	if held, _ := bal.BalanceOf(ctx, "u1"); held != types.MicroPoints(6_600_000) {
		t.Fatalf("balance = %s, want 6.6 pts", held)
	}

	// The summary reflects the upgraded level.
	sum, err := eng.Privileges(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if g := sum.Grant(catalog.ServiceCreditBoost); g.Level != 2 {
		t.Fatalf("grant level = %d, want 2", g.Level)
	}
}

func TestUpgradeEdgeCases(t *testing.T) {
	eng, bal, clock := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(10))

	// No active grant yet.
	if _, err := eng.UpgradeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 2}); !errors.Is(err, incentive.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	if _, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 2}); err != nil {
		t.Fatal(err)
	}

	// Same or lower level is not an upgrade.
	for _, level := range []int{1, 2} {
		if _, err := eng.UpgradeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: level}); !errors.Is(err, incentive.ErrInvalidLevel) {
			t.Fatalf("level %d: err = %v, want ErrInvalidLevel", level, err)
		}
	}

	// The service cooldown throttles upgrades the same as purchases.
	if _, err := eng.UpgradeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 3}); !errors.Is(err, incentive.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive inside the window", err)
	}
	clock.Advance(25 * time.Hour)
	if _, err := eng.UpgradeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 3}); err != nil {
		t.Fatal(err)
	}

	// The upgrade re-stamps the cooldown for the service type.
	if _, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1}); !errors.Is(err, incentive.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive after upgrade", err)
	}
}

func TestConsumeBatch(t *testing.T) {
	t.Run("all or nothing", func(t *testing.T) {
		eng, bal, _ := newConsumptionEngine(t)
		ctx := context.Background()
		// 1 + 0.5 = 1.5 needed; fund less.
		fund(t, bal, "u1", types.Point(1))

		_, err := eng.ConsumeBatch(ctx, []incentive.ConsumeRequest{
			{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1},
			{User: "u1", Service: catalog.ServiceFastTrack, Level: 1},
		})
		if !errors.Is(err, incentive.ErrInsufficientBalance) {
			t.Fatalf("err = %v, want ErrInsufficientBalance", err)
		}

		// Nothing was burned or recorded.
		if held, _ := bal.BalanceOf(ctx, "u1"); held != types.Point(1) {
			t.Fatalf("balance = %s, want unchanged 1 pt", held)
		}
		if history, _ := eng.History(ctx, "u1", consumption.ListOpts{}); len(history) != 0 {
			t.Fatalf("history len = %d, want 0", len(history))
		}
	})

	t.Run("applies when fully funded", func(t *testing.T) {
		eng, bal, _ := newConsumptionEngine(t)
		ctx := context.Background()
		fund(t, bal, "u1", types.Point(2))

		records, err := eng.ConsumeBatch(ctx, []incentive.ConsumeRequest{
			{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1},
			{User: "u1", Service: catalog.ServiceFastTrack, Level: 1},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Fatalf("records = %d, want 2", len(records))
		}
		if held, _ := bal.BalanceOf(ctx, "u1"); held != types.MicroPoints(500_000) {
			t.Fatalf("balance = %s, want 0.5 pts", held)
		}
	})

	t.Run("duplicate service rejected", func(t *testing.T) {
		eng, bal, _ := newConsumptionEngine(t)
		fund(t, bal, "u1", types.Point(10))

		_, err := eng.ConsumeBatch(context.Background(), []incentive.ConsumeRequest{
			{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1},
			{User: "u1", Service: catalog.ServiceCreditBoost, Level: 2},
		})
		if !errors.Is(err, incentive.ErrCooldownActive) {
			t.Fatalf("err = %v, want ErrCooldownActive", err)
		}
	})

	t.Run("cap enforced", func(t *testing.T) {
		eng, _, _ := newConsumptionEngine(t, incentive.WithBatchCap(1))

		_, err := eng.ConsumeBatch(context.Background(), []incentive.ConsumeRequest{
			{User: "u1", Service: catalog.ServiceCreditBoost, Level: 1},
			{User: "u1", Service: catalog.ServiceFastTrack, Level: 1},
		})
		if !errors.Is(err, incentive.ErrBatchTooLarge) {
			t.Fatalf("err = %v, want ErrBatchTooLarge", err)
		}
	})
}

// privilegeRecorder captures the mirrored privilege bitmaps.
type privilegeRecorder struct {
	packed []uint64
}

func (r *privilegeRecorder) Name() string { return "privilege-recorder" }

func (r *privilegeRecorder) OnPrivilegeChanged(_ context.Context, _, _ string, _ int, _ bool, packed uint64) error {
	r.packed = append(r.packed, packed)
	return nil
}

func TestPrivilegeBitmapMirrored(t *testing.T) {
	rec := &privilegeRecorder{}
	eng, bal, clock := newConsumptionEngine(t, incentive.WithPlugin(rec))
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(10))

	if _, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 2}); err != nil {
		t.Fatal(err)
	}
	want, err := eng.PackedPrivileges(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if want == 0 {
		t.Fatal("packed privileges = 0, want non-zero after purchase")
	}
	if len(rec.packed) != 1 || rec.packed[0] != want {
		t.Fatalf("mirrored bitmaps = %v, want [%d]", rec.packed, want)
	}

	// The upgrade event carries the recomputed bitmap too.
	clock.Advance(25 * time.Hour)
	if _, err := eng.UpgradeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceCreditBoost, Level: 3}); err != nil {
		t.Fatal(err)
	}
	want, err = eng.PackedPrivileges(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.packed) != 2 || rec.packed[1] != want {
		t.Fatalf("mirrored bitmaps = %v, want second entry %d", rec.packed, want)
	}
}

func TestPrivilegesExpire(t *testing.T) {
	eng, bal, clock := newConsumptionEngine(t)
	ctx := context.Background()
	fund(t, bal, "u1", types.Point(1))

	if _, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{User: "u1", Service: catalog.ServiceFastTrack, Level: 1}); err != nil {
		t.Fatal(err)
	}
	sum, _ := eng.Privileges(ctx, "u1")
	if !sum.Has(catalog.ServiceFastTrack) {
		t.Fatal("expected active grant before expiry")
	}

	// The fast_track grant runs 7 days.
	clock.Advance(8 * 24 * time.Hour)
	sum, _ = eng.Privileges(ctx, "u1")
	if sum.Has(catalog.ServiceFastTrack) {
		t.Fatal("expected expired grant after 8 days")
	}
}
