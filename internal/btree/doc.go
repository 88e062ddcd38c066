// Package btree walks the version 1 B-trees of old-style groups.
//
// Files written with a version 0 or 1 superblock, which is what h5py produces
// by default, index group members with a "TREE" node whose leaves point at
// symbol table nodes ("SNOD"). Each symbol table entry names a member through
// an offset into the group's local heap. [GroupEntries] flattens that
// structure into a list of entries in name order.
package btree
