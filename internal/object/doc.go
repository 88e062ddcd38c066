// Package object reads and writes HDF5 object headers.
//
// Every group and dataset is described by an object header holding a list of
// header messages. [Read] accepts both on-disk forms:
//
//   - Version 1: a 16-byte prefix followed by 8-byte aligned messages, with
//     further messages in continuation blocks.
//   - Version 2 ("OHDR"): a compact prefix, 1-byte message types and a
//     lookup3 checksum over each chunk. Continuation chunks start with "OCHK".
//
// [Write] always produces a single-chunk version 2 header.
package object
