// Package types contains shared data types used across sigrag:
// the unified error taxonomy and the prediction value returned by
// reasoning modules.
package types
