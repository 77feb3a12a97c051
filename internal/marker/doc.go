// Package marker encodes one synchronization event. The visual half is a
// short text payload destined for a QR code; the audio half is a tone burst
// of ten quadrant-phase symbols carrying a tagged 8-bit sequence index and a
// CRC-4, placed so that a known sample lands on the sync instant.
//
// The central type is [Codec]. [Codec.Demodulate] and [ParsePayload]
// provide the matching decode paths used for verification.
package marker
