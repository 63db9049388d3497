package types

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// PriorityConfig describes the compute budget of one transaction.
type PriorityConfig struct {
	ComputeUnits uint32 // Number of compute units
	PriorityFee  uint64 // Priority fee in micro-lamports per compute unit
}

// ComputeBudgetInstructions returns the limit and price instructions that
// must lead every transaction the engine builds. Zero values are skipped.
func ComputeBudgetInstructions(config PriorityConfig) []solana.Instruction {
	var instructions []solana.Instruction

	// Set compute unit limit
	if config.ComputeUnits > 0 {
		inst := computebudget.NewSetComputeUnitLimitInstruction(config.ComputeUnits).Build()
		instructions = append(instructions, inst)
	}

	// Set compute unit price
	if config.PriorityFee > 0 {
		inst := computebudget.NewSetComputeUnitPriceInstruction(config.PriorityFee).Build()
		instructions = append(instructions, inst)
	}

	return instructions
}
