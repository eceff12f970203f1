// Package offsets names FSUIPC offsets and converts their values.
//
// The embedded catalogue maps names such as "heading" or "com1_frequency"
// to an offset, a fixed byte layout and a scaling, so callers work with
// host values instead of raw bytes:
//
//	d, _ := offsets.Lookup("heading")
//	v, err := offsets.Get(ctx, client, d) // float64 degrees
//
// A catalogue file with the same YAML shape can extend or override the
// embedded one with Merge.
package offsets
