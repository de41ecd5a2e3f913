package models

import "github.com/shopspring/decimal"

type StepType string

const (
	SwapStep             StepType = "swap"
	StakeStep            StepType = "stake"
	ProvideLiquidityStep StepType = "provide-liquidity"
)

type StrategyStep struct {
	Type         StepType        `json:"type"`
	ChainID      int64           `json:"chainId"`
	TokenIn      string          `json:"tokenIn,omitempty"`
	TokenOut     string          `json:"tokenOut,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Protocol     string          `json:"protocol,omitempty"`
	EstimatedGas uint64          `json:"estimatedGas"`
	Description  string          `json:"description"`
}

type Strategy struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Risk        string         `json:"risk"`
	APY         float64        `json:"apy"`
	Actions     []string       `json:"actions,omitempty"`
	Steps       []StrategyStep `json:"steps,omitempty"`
	Source      string         `json:"source"`
}

type StepStatus string

const (
	StepExecuted  StepStatus = "executed"
	StepSimulated StepStatus = "simulated"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

type StepResult struct {
	Step        StrategyStep `json:"step"`
	Status      StepStatus   `json:"status"`
	TxHash      string       `json:"txHash,omitempty"`
	ExplorerURL string       `json:"explorerUrl,omitempty"`
	Quote       *SwapQuote   `json:"quote,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type ExecutionResult struct {
	StrategyID     string       `json:"strategyId"`
	Address        string       `json:"address"`
	Success        bool         `json:"success"`
	SimulationMode bool         `json:"simulationMode"`
	Steps          []StepResult `json:"steps"`
	TotalGas       uint64       `json:"totalGas"`
	Warnings       []string     `json:"warnings,omitempty"`
	Error          string       `json:"error,omitempty"`
}
