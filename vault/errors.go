package vault

import "errors"

var (
	// 账户约束
	ErrConstraintSeeds              = errors.New("vault: a seeds constraint was violated")
	ErrAccountNotInitialized        = errors.New("vault: account is not initialized")
	ErrAccountOwnedByWrongProgram   = errors.New("vault: account owned by a different program than expected")
	ErrAccountDiscriminatorMismatch = errors.New("vault: account discriminator did not match")
	ErrAccountDidNotDeserialize     = errors.New("vault: account data could not be decoded")
	ErrAccountNotSystemOwned        = errors.New("vault: account is not owned by the system program")
	ErrAccountNotSigner             = errors.New("vault: account did not sign")
	ErrInvalidProgramID             = errors.New("vault: program id was not as expected")

	// 指令
	ErrUnknownInstruction           = errors.New("vault: unknown instruction discriminator")
	ErrInstructionDidNotDeserialize = errors.New("vault: instruction data could not be decoded")

	// 提现可选校验
	ErrInsufficientVaultFunds  = errors.New("vault: withdraw amount exceeds custody balance")
	ErrWithdrawBelowRentExempt = errors.New("vault: withdraw would leave custody below the rent-exempt minimum")
)
