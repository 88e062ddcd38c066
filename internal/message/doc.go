// Package message parses and serializes HDF5 object header messages.
//
// Object headers hold a sequence of typed messages describing an object:
// dataspace, datatype and layout for datasets; links, link info and symbol
// tables for groups; attributes for both. This package implements the subset
// an image archive needs:
//
//   - Dataspace (0x0001): dimensions. See [Dataspace].
//   - Link Info (0x0002): where a new-style group keeps its links. See [LinkInfo].
//   - Datatype (0x0003): fixed-point, floating-point and string types. See [Datatype].
//   - Fill Value (0x0005): allocation and fill-write policy. See [FillValue].
//   - Link (0x0006): a named link to another object. See [Link].
//   - Data Layout (0x0008): compact, contiguous or chunked storage. See [DataLayout].
//   - Group Info (0x000A): link storage hints for new-style groups. See [GroupInfo].
//   - Filter Pipeline (0x000B): chunk filters. See [FilterPipeline].
//   - Attribute (0x000C): a named value. See [Attribute].
//   - Continuation (0x0010): more header data elsewhere. See [Continuation].
//   - Symbol Table (0x0011): old-style group B-tree and heap. See [SymbolTable].
//
// Anything else is wrapped in [Unknown] so headers written by other tools
// still parse. Messages that can be written implement [Serializable].
package message
