// Package risk implements the pre-trade gate and the position and P&L
// tracker behind it. The gate runs six checks in a fixed cheap-to-
// expensive order with precomputed thresholds and no allocation. The
// fat-finger comparison multiplies instead of dividing; the capital
// check divides by PriceScale to turn fixed-point prices into currency.
// The kill switch is the gate's only cross-thread state.
package risk
