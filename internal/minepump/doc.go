// Package minepump simulates a mine drainage pump and checks its five
// runtime specifications after every time step.
//
// The pump controller is assembled from features chosen when it is built:
//
//	base             do nothing
//	highWaterSensor  switch the pump on when the water reaches the sensor
//	lowWaterSensor   switch the pump off when the water drops to low
//	methaneAlarm     switch a running pump off while methane is critical
//
// The selected features form a fixed policy chain. Each time step the
// first policy that acts ends the step; base always acts last.
package minepump
