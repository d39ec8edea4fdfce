// Package plan turns an untrusted architect payload into a bounded list of
// agent plan entries with stable, unique node ids.
//
// The payload is whatever JSON a model produced: fields may be missing,
// misnamed, mistyped or duplicated. [Normalizer.Normalize] never fails; it
// fills defaults, clamps the entry count to the configured bounds and pads
// short plans with built-in fallback agents. [Normalizer.NormalizeInputs]
// does the same for the suggested data inputs, and [Normalizer.FromResponse]
// parses raw model text before normalizing both.
package plan
