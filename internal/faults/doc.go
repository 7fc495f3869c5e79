// Package faults defines the error taxonomy shared by the pipeline,
// scheduler, and validator.
//
// Errors are tagged with sentinel markers (timeout, execution, contract,
// deadline, transition) so downstream code can classify a failure without
// depending on the package that produced it. The fallback resolver keys its
// strategy table off these markers; the components that detect a failure
// never decide recovery themselves.
package faults
