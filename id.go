package incentive

import "github.com/xraph/incentive/id"

// ID is the primary identifier type for all Incentive entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
