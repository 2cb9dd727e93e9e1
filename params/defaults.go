package params

import "time"

const (
	DefaultNetwork = "localhost"

	// DefaultMintMethod is the OpenZeppelin ERC721 minter entry point.
	DefaultMintMethod = "safeMint(address,uint256)"

	// DefaultTokenID is the placeholder id passed on every call in fixed mode.
	DefaultTokenID = "0"

	TokenIDFixed      = "fixed"
	TokenIDSequential = "sequential"

	DefaultPacingDelay    = 1 * time.Second
	DefaultConfirmTimeout = 2 * time.Minute

	// GasHeadroomPercent is added on top of EstimateGas.
	GasHeadroomPercent = 20

	DefaultRoleName = "MINTER_ROLE"

	DefaultLogLevel = "info"
)
