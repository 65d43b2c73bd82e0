// Package paragraph defines ParagraphInfo, the record that describes one
// paragraph of a notebook, and the codecs that move it across the wire.
//
// Every field of Info is an Optional, so an unset field is distinct from a
// field set to the empty string and that distinction survives every codec.
//
// Two binary encodings are provided behind the Codec interface. TaggedCodec
// prefixes each set field with its id and type and tolerates fields it does
// not know. PositionalCodec writes a presence bit set and then the set values
// in field order; it is smaller and is what the store persists.
package paragraph
