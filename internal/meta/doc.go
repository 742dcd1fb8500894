// Package meta encodes and decodes the fixed-length meta blocks that sit
// next to every save payload.
//
// Each platform variant is a Format: a magic header, a platform prefix and,
// from Waypoint on, a shared tail holding the save name, summary, mode and
// play time. The block length selects the layout. Bytes no field covers are
// kept in Extra.Bytes in order, so decoding and re-encoding a block returns
// it unchanged.
package meta
