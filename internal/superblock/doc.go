// Package superblock reads and writes the HDF5 superblock.
//
// The superblock is the entry point of a file. [Read] searches for the
// 8-byte signature at offsets 0, 512, 1024 and 2048 and decodes versions
// 0 through 3. Versions 0 and 1 locate the root group through a symbol
// table entry whose scratch pad carries the group's B-tree and local heap
// addresses. Versions 2 and 3 store the root object header address directly
// and protect the block with a lookup3 checksum.
//
// [Superblock.Write] always emits version 2, the layout this module uses for
// every archive it creates or appends to.
package superblock
