package audithook

// Action constants for audit events.
const (
	// Accrual actions
	ActionRewardLocked    = "reward.locked"
	ActionRewardReleased  = "reward.released"
	ActionRewardForfeited = "reward.forfeited"
	ActionPointsBurned    = "points.burned"
	ActionDebtChanged     = "debt.changed"

	// Tier actions
	ActionLevelChanged = "level.changed"

	// Consumption actions
	ActionServiceConsumed  = "service.consumed"
	ActionServiceUpgraded  = "service.upgraded"
	ActionPrivilegeChanged = "privilege.changed"

	// Telemetry actions
	ActionPushFailed = "push.failed"
)

// Resource constants for audit events.
const (
	ResourceReward    = "reward"
	ResourcePoints    = "points"
	ResourceDebt      = "debt"
	ResourceLevel     = "level"
	ResourceService   = "service"
	ResourcePrivilege = "privilege"
	ResourceStats     = "stats"
)

// Category constants for audit events.
const (
	CategoryAccrual     = "accrual"
	CategoryConsumption = "consumption"
	CategoryTier        = "tier"
	CategoryTelemetry   = "telemetry"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
