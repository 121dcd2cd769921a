// Package incentive provides a points-based incentive engine for lending
// platforms.
//
// Incentive is designed as a library, not a service. Import it directly into
// your Go application for maximum performance and flexibility. It provides:
//
//   - Reward accrual on loan events with locked points and maturity tracking
//   - On-time release, forfeiture and penalty assessment on repayment
//   - A tier engine with monotonic level promotion and reward multipliers
//   - Point consumption for value-added services with cooldowns and upgrades
//   - A debt ledger that absorbs penalty shortfalls and offsets future rewards
//   - Best-effort stats telemetry with batched plugin delivery
//   - Pluggable audit trail and metrics via plugins
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/incentive"
//	    "github.com/xraph/incentive/store/memory"
//	)
//
//	eng := incentive.New(memory.New(),
//	    incentive.WithBalance(balance.NewMemory()),
//	    incentive.WithCatalog(cat),
//	)
//
//	// Start the engine (runs migrations, begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Loan events drive accrual. A borrow locks a provisional reward until the
// loan matures; the repayment outcome decides its fate:
//
//	res, err := eng.OnLoanEvent(ctx, incentive.LoanEvent{
//	    User:      "borrower-1",
//	    Principal: incentive.PrincipalUnits(5000),
//	    Term:      30 * 24 * time.Hour,
//	})
//
// On-time repayment mints the locked points (net of any outstanding debt);
// a missed repayment forfeits them and assesses a penalty:
//
//	res, err = eng.OnLoanEvent(ctx, incentive.LoanEvent{
//	    User:    "borrower-1",
//	    Outcome: incentive.OutcomeOnTime,
//	})
//
// Minted points buy services from the catalog:
//
//	_, err = eng.ConsumeService(ctx, incentive.ConsumeRequest{
//	    User:    "borrower-1",
//	    Service: catalog.ServiceRateDiscount,
//	    Level:   2,
//	})
//
// # Performance
//
// All point and principal calculations use integer arithmetic to avoid
// floating-point precision issues. The Points type represents amounts in
// micro-points (six decimal places); multipliers are expressed in basis
// points and rounded toward zero.
//
// Stats delivery never blocks the hot path: events are buffered in-process
// and flushed to plugins in batches, and a full buffer drops events rather
// than stalling accrual or consumption.
//
// # Integration
//
// Incentive integrates with the Forgery ecosystem:
//
//   - Forge: extension adapter with DI registration and lifecycle management
//   - Grove: SQLite, Postgres and MongoDB store backends
//   - Plugins: audit trail, metrics, and custom lifecycle observers
//
// # TypeID
//
// Stored records use TypeID for globally unique, type-safe identifiers:
//
//	cons_01h2xcejqtf2nbrexx3vqjhp41  // Consumption record ID
//	lock_01h2xcejqtf2nbrexx3vqjhp41  // Order lock ID
//	sevt_01h455vb4pex5vsknk084sn02q  // Stats event ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of records.
package incentive
