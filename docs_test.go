package incentive_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/incentive"
	"github.com/xraph/incentive/balance"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/store/memory"
	"github.com/xraph/incentive/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Balance service backing the spendable points
		bal := balance.NewMemory()

		// Service catalog with one offering
		cat := catalog.NewStatic().
			Add(catalog.ServiceRateDiscount, catalog.NewStaticProvider(24*time.Hour).
				SetLevel(1, catalog.Config{
					Price:    types.MicroPoints(500_000), // 0.5 points
					Duration: 30 * 24 * time.Hour,
					Active:   true,
					Level:    1,
				}))

		// Initialize the engine
		eng := incentive.New(store,
			incentive.WithLogger(slog.Default()),
			incentive.WithBalance(bal),
			incentive.WithCatalog(cat),
			incentive.WithStatsConfig(100, 5*time.Second),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// A borrow locks a provisional reward against maturity
		res, err := eng.OnLoanEvent(ctx, incentive.LoanEvent{
			User:      "borrower-1",
			Principal: incentive.PrincipalUnits(5000),
			Term:      30 * 24 * time.Hour,
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.Locked != incentive.Point(1) {
			t.Fatalf("locked = %s, want %s", res.Locked, incentive.Point(1))
		}

		// On-time repayment mints the locked points
		res, err = eng.OnLoanEvent(ctx, incentive.LoanEvent{
			User:    "borrower-1",
			Outcome: incentive.OutcomeOnTime,
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("minted %s points\n", res.Minted)

		// Minted points buy services from the catalog
		rec, err := eng.ConsumeService(ctx, incentive.ConsumeRequest{
			User:    "borrower-1",
			Service: catalog.ServiceRateDiscount,
			Level:   1,
		})
		if err != nil {
			t.Fatal(err)
		}
		if rec.Points != types.MicroPoints(500_000) {
			t.Fatalf("price = %s, want 0.500000", rec.Points)
		}

		// The grant is visible as an active privilege
		sum, err := eng.Privileges(ctx, "borrower-1")
		if err != nil {
			t.Fatal(err)
		}
		if !sum.Has(catalog.ServiceRateDiscount) {
			t.Fatal("expected active rate_discount privilege")
		}
	})

	// Test Points type examples
	t.Run("PointsExamples", func(t *testing.T) {
		// Constructors
		_ = incentive.Point(5)              // 5 points
		_ = incentive.MicroPoints(500_000)  // 0.5 points
		_ = incentive.PrincipalUnits(1000)  // principal floor

		// Basis-point arithmetic rounds toward zero
		p := incentive.Point(1)
		if p.MulBps(11_000) != incentive.MicroPoints(1_100_000) {
			t.Fatal("1.1x multiplier mismatch")
		}

		// Formatting
		if got := incentive.MicroPoints(1_500_000).String(); got != "1.500000 pts" {
			t.Fatalf("String() = %q", got)
		}

		// Parsing round-trips
		parsed, err := incentive.ParsePoints("2.250000")
		if err != nil {
			t.Fatal(err)
		}
		if parsed != incentive.MicroPoints(2_250_000) {
			t.Fatalf("parsed = %d", parsed)
		}
	})
}
