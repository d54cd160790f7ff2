package service

import "flowgen/internal/model"

// EstimateComplexity maps a workflow's structural shape to a tier.
// Thresholds: <=3 nodes and <=3 connection groups is simple, <=10 nodes
// and <=15 connection groups is medium, everything else complex.
func EstimateComplexity(nodeCount, connectionCount int) string {
	switch {
	case nodeCount <= 3 && connectionCount <= 3:
		return model.ComplexitySimple
	case nodeCount <= 10 && connectionCount <= 15:
		return model.ComplexityMedium
	default:
		return model.ComplexityComplex
	}
}
