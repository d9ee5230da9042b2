// Package matrix implements a 4x4 routing matrix mixer.
//
// Each output row sums the inputs whose cell in that row is enabled, each
// scaled by the cell's gain. Row and column buttons toggle whole lines of
// cells; how a toggle combines with the cells already set is chosen by a
// MuteAlgorithm. The summed voltage is then shaped by an AmplitudeAlgorithm.
package matrix
