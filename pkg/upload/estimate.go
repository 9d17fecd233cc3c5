package upload

import (
	"context"
	"math/big"
)

// Gas model for the upload preview. These are rough figures, not an eth_estimateGas call.
const (
	inlineBaseGas    = 100000
	inlineGasPerByte = 680
	blobStoreGas     = 150000
)

// Estimate is a preview of what registering a file costs
type Estimate struct {
	Decision    StorageDecision
	Gas         uint64
	GasPriceWei *big.Int
	CostWei     *big.Int
}

// EstimateGas returns the preview gas for a file of size bytes. Inline storage pays per
// base64 byte, ceil(size*4/3); blob storage only stores a short reference.
func EstimateGas(size int64, limits Limits) uint64 {
	if Classify(size, limits) == Inline {
		encoded := (size*4 + 2) / 3
		return uint64(inlineBaseGas + encoded*inlineGasPerByte)
	}
	return blobStoreGas
}

// EstimateCost prices the preview gas at the current gas price.
func (o *Orchestrator) EstimateCost(ctx context.Context, size int64) (*Estimate, error) {
	est := &Estimate{
		Decision: Classify(size, o.limits),
		Gas:      EstimateGas(size, o.limits),
	}
	price, err := o.ledger.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	est.GasPriceWei = price
	est.CostWei = new(big.Int).Mul(price, new(big.Int).SetUint64(est.Gas))
	return est, nil
}
